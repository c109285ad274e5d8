package chat

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/naveenspark/talk/pkg/domain"
)

func newRegistrarFixture() (*Registrar, *fakeAccounts, *fakeStore, *Session) {
	accounts := newFakeAccounts()
	store := newFakeStore()
	store.invites["INV1"] = &domain.InviteCode{Code: "INV1", DisplayName: "Bob"}
	store.invites["USED"] = &domain.InviteCode{Code: "USED", DisplayName: "Carol", Used: true}
	calls := &callLog{}
	accounts.shared = calls
	store.shared = calls
	session := NewSession(accounts, nil, discardLogger())
	return NewRegistrar(accounts, store, session, discardLogger()), accounts, store, session
}

func TestRegisterInviteScenario(t *testing.T) {
	r, accounts, store, session := newRegistrarFixture()

	u, err := r.Register(context.Background(), RegisterRequest{
		Email: "bob@x.com", Password: "secret1", Confirm: "secret1", InviteCode: "INV1",
	})
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if u.DisplayName != "Bob" {
		t.Errorf("DisplayName = %q, want %q", u.DisplayName, "Bob")
	}
	if got := accounts.users["bob@x.com"].DisplayName; got != "Bob" {
		t.Errorf("provider DisplayName = %q, want %q", got, "Bob")
	}
	if !store.invites["INV1"].Used {
		t.Error("INV1.used = false, want true")
	}

	want := []string{"methods:bob@x.com", "get-invite:INV1", "create:bob@x.com", "name:Bob", "consume:INV1"}
	if got := accounts.shared.Calls(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
	if store.consumeToken != "id-bob@x.com" {
		t.Errorf("invite consumed with token %q, want the new account's %q", store.consumeToken, "id-bob@x.com")
	}

	st := session.Current()
	if st.Status != StatusSignedIn || st.User.DisplayName != "Bob" {
		t.Errorf("session = %+v, want signed in as Bob", st)
	}

	status, err := r.invites.Check(context.Background(), "INV1")
	if err != nil {
		t.Fatal(err)
	}
	if status.Valid {
		t.Error("Check(INV1) valid after consumption")
	}
}

func TestRegisterPreconditions(t *testing.T) {
	tests := []struct {
		name    string
		req     RegisterRequest
		wantErr error
		// provider calls expected before the failure
		wantAccountCalls int
		wantStoreCalls   int
	}{
		{"short password", RegisterRequest{"bob@x.com", "ab", "ab", "INV1"}, domain.ErrPasswordTooShort, 0, 0},
		{"short beats mismatch", RegisterRequest{"bob@x.com", "ab", "cd", "INV1"}, domain.ErrPasswordTooShort, 0, 0},
		{"mismatch", RegisterRequest{"bob@x.com", "secret1", "secret2", "INV1"}, domain.ErrPasswordMismatch, 0, 0},
		{"missing email", RegisterRequest{"", "secret1", "secret1", "INV1"}, domain.ErrEmailRequired, 0, 0},
		{"malformed email", RegisterRequest{"bob", "secret1", "secret1", "INV1"}, domain.ErrEmailMalformed, 0, 0},
		{"email in use", RegisterRequest{"alice@x.com", "secret1", "secret1", "INV1"}, domain.ErrEmailInUse, 1, 0},
		{"missing invite", RegisterRequest{"bob@x.com", "secret1", "secret1", " "}, domain.ErrInviteRequired, 1, 0},
		{"unknown invite", RegisterRequest{"bob@x.com", "secret1", "secret1", "NOPE"}, domain.ErrInviteInvalid, 1, 1},
		{"used invite", RegisterRequest{"bob@x.com", "secret1", "secret1", "USED"}, domain.ErrInviteInvalid, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, accounts, store, session := newRegistrarFixture()
			accounts.add("alice@x.com", "secret1", "Alice")

			_, err := r.Register(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Register() error = %v, want %v", err, tt.wantErr)
			}
			if got := len(accounts.Calls()); got != tt.wantAccountCalls {
				t.Errorf("account calls = %v, want %d", accounts.Calls(), tt.wantAccountCalls)
			}
			if got := len(store.Calls()); got != tt.wantStoreCalls {
				t.Errorf("store calls = %v, want %d", store.Calls(), tt.wantStoreCalls)
			}
			if session.Current().Status == StatusSignedIn {
				t.Error("session signed in after a failed precondition")
			}
			if store.invites["INV1"].Used {
				t.Error("INV1 consumed after a failed precondition")
			}
		})
	}
}

func TestRegisterValidationNeverReachesProvider(t *testing.T) {
	r, accounts, store, _ := newRegistrarFixture()
	_, err := r.Register(context.Background(), RegisterRequest{"bob@x.com", "ab", "ab", "INV1"})
	if !domain.IsValidation(err) {
		t.Errorf("IsValidation(%v) = false", err)
	}
	if len(accounts.Calls())+len(store.Calls()) != 0 {
		t.Errorf("provider calls made: %v %v", accounts.Calls(), store.Calls())
	}
}

func TestRegisterPartialFailures(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name     string
		setup    func(*fakeAccounts, *fakeStore)
		wantStep string
		wantName string
		wantUsed bool
	}{
		{
			name:     "display name fails",
			setup:    func(a *fakeAccounts, _ *fakeStore) { a.failName = boom },
			wantStep: "set display name",
			wantName: "",
			wantUsed: false,
		},
		{
			name:     "consume fails",
			setup:    func(_ *fakeAccounts, s *fakeStore) { s.failConsume = boom },
			wantStep: "consume invite",
			wantName: "Bob",
			wantUsed: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, accounts, store, session := newRegistrarFixture()
			tt.setup(accounts, store)

			_, err := r.Register(context.Background(), RegisterRequest{"bob@x.com", "secret1", "secret1", "INV1"})
			var partial *domain.PartialRegistrationError
			if !errors.As(err, &partial) {
				t.Fatalf("error = %v, want PartialRegistrationError", err)
			}
			if partial.Step != tt.wantStep {
				t.Errorf("Step = %q, want %q", partial.Step, tt.wantStep)
			}
			if !errors.Is(err, boom) {
				t.Errorf("error does not wrap cause: %v", err)
			}
			if _, ok := accounts.users["bob@x.com"]; !ok {
				t.Error("account was removed, want it kept")
			}
			if got := accounts.users["bob@x.com"].DisplayName; got != tt.wantName {
				t.Errorf("DisplayName = %q, want %q", got, tt.wantName)
			}
			if store.invites["INV1"].Used != tt.wantUsed {
				t.Errorf("INV1.used = %v, want %v", store.invites["INV1"].Used, tt.wantUsed)
			}
			if session.Current().Status != StatusSignedIn {
				t.Error("created account is not signed in")
			}
		})
	}
}

func TestRegisterLosesConsumeRace(t *testing.T) {
	r, _, store, _ := newRegistrarFixture()
	// Another registration flipped the code after our check passed.
	store.failConsume = domain.ErrInviteInvalid

	u, err := r.Register(context.Background(), RegisterRequest{"bob@x.com", "secret1", "secret1", "INV1"})
	var partial *domain.PartialRegistrationError
	if !errors.As(err, &partial) {
		t.Fatalf("error = %v, want PartialRegistrationError", err)
	}
	if !errors.Is(err, domain.ErrInviteInvalid) {
		t.Errorf("error = %v, want it to wrap %v", err, domain.ErrInviteInvalid)
	}
	if u.Email != "bob@x.com" || partial.User.UID == "" {
		t.Errorf("partial user = %+v, want the created account", partial.User)
	}
}

func TestPrecheckProviderFailure(t *testing.T) {
	r, accounts, _, _ := newRegistrarFixture()
	accounts.failMethods = errors.New("offline")

	err := r.Precheck(context.Background(), "bob@x.com", "secret1", "secret1")
	var pe *domain.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want ProviderError", err)
	}
}
