package auth

import "testing"

func TestHashAndVerifyPassword(t *testing.T) {
	ph, err := HashPassword("s3cret", "pepper")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	ok, err := VerifyPassword("s3cret", "pepper", ph)
	if err != nil || !ok {
		t.Fatalf("expected verify to succeed, ok=%v err=%v", ok, err)
	}
	ok, err = VerifyPassword("wrong", "pepper", ph)
	if err != nil || ok {
		t.Fatalf("wrong password must not verify, ok=%v err=%v", ok, err)
	}
	ok, err = VerifyPassword("s3cret", "other-pepper", ph)
	if err != nil || ok {
		t.Fatalf("wrong pepper must not verify, ok=%v err=%v", ok, err)
	}
}

func TestHashPasswordSaltsDiffer(t *testing.T) {
	a := MustHashPassword("same", "pepper")
	b := MustHashPassword("same", "pepper")
	if a.Salt == b.Salt || a.Hash == b.Hash {
		t.Fatal("two hashes of the same password must not share salt or hash")
	}
}
