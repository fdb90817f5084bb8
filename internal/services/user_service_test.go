package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/tbourn/go-movie-reviews/internal/auth"
)

func newUserSvc(t *testing.T) *UserService {
	return &UserService{DB: newServiceDB(t), BcryptCost: bcrypt.MinCost}
}

func TestUserService_Signup_HashesAndNormalizes(t *testing.T) {
	s := newUserSvc(t)
	u, err := s.Signup(context.Background(), SignupInput{
		Username: "  alice ",
		FullName: "Alice   Liddell",
		Email:    " Alice@Example.COM ",
		Password: "secret1",
	})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if u.ID == 0 || u.Username != "alice" || u.FullName != "Alice Liddell" || u.Email != "alice@example.com" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if u.HashedPassword == "secret1" || !auth.VerifyPassword(u.HashedPassword, "secret1") {
		t.Fatalf("password not hashed with bcrypt")
	}
}

func TestUserService_Signup_DuplicateUsernameAndEmail(t *testing.T) {
	s := newUserSvc(t)
	ctx := context.Background()
	if _, err := s.Signup(ctx, SignupInput{Username: "bob", FullName: "Bob", Email: "bob@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("first signup: %v", err)
	}

	_, err := s.Signup(ctx, SignupInput{Username: "bob", FullName: "B2", Email: "b2@example.com", Password: "secret1"})
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
	_, err = s.Signup(ctx, SignupInput{Username: "bobby", FullName: "B3", Email: "BOB@example.com", Password: "secret1"})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestUserService_Signup_BlankAfterNormalization(t *testing.T) {
	s := newUserSvc(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   SignupInput
		want error
	}{
		{"blank username", SignupInput{Username: "     ", FullName: "Ann", Email: "a@example.com", Password: "secret1"}, ErrInvalidUsername},
		{"short username", SignupInput{Username: " \tab  ", FullName: "Ann", Email: "a@example.com", Password: "secret1"}, ErrInvalidUsername},
		{"blank full name", SignupInput{Username: "annie", FullName: " \n\t ", Email: "a@example.com", Password: "secret1"}, ErrEmptyFullName},
	}
	for _, tc := range cases {
		if _, err := s.Signup(ctx, tc.in); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	var n int64
	if err := s.DB.Table("users").Count(&n).Error; err != nil || n != 0 {
		t.Fatalf("no user should be stored, got %d (err %v)", n, err)
	}
}

func TestUserService_Authenticate_BlankUsername(t *testing.T) {
	s := newUserSvc(t)
	if _, err := s.Authenticate(context.Background(), "   ", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestUserService_Signup_PasswordTooLong(t *testing.T) {
	s := newUserSvc(t)
	_, err := s.Signup(context.Background(), SignupInput{
		Username: "long", FullName: "L", Email: "l@example.com",
		Password: strings.Repeat("x", 73),
	})
	if !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}

func TestUserService_Authenticate(t *testing.T) {
	s := newUserSvc(t)
	ctx := context.Background()
	created, err := s.Signup(ctx, SignupInput{Username: "carol", FullName: "C", Email: "c@example.com", Password: "hunter22"})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}

	u, err := s.Authenticate(ctx, "carol", "hunter22")
	if err != nil || u.ID != created.ID {
		t.Fatalf("Authenticate ok: got %+v err=%v", u, err)
	}
	if _, err := s.Authenticate(ctx, "carol", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := s.Authenticate(ctx, "nobody", "hunter22"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestUserService_Get(t *testing.T) {
	s := newUserSvc(t)
	ctx := context.Background()
	u := mkUser(t, s.DB, "dave")

	got, err := s.Get(ctx, u.ID)
	if err != nil || got.Username != "dave" {
		t.Fatalf("Get: got %+v err=%v", got, err)
	}
	if _, err := s.Get(ctx, 9999); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
