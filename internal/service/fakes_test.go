package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"trackor-auth/internal/mail"
	"trackor-auth/internal/model"
)

// In-memory collaborators mirroring the SQL semantics of the repository
// layer, so service behavior can be exercised without a database.

type fakeRevocations struct {
	mu        sync.Mutex
	records   map[string]model.RevocationRecord
	purges    int
	failPurge error
}

func newFakeRevocations() *fakeRevocations {
	return &fakeRevocations{records: map[string]model.RevocationRecord{}}
}

func (f *fakeRevocations) IsRevoked(_ context.Context, tokenString string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.records[tokenString]
	return ok, nil
}

func (f *fakeRevocations) Revoke(_ context.Context, tokenString string, issuedAt time.Time, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[tokenString]; ok {
		return nil
	}
	f.records[tokenString] = model.RevocationRecord{Token: tokenString, IssuedAt: issuedAt, ExpiresAt: expiresAt}
	return nil
}

func (f *fakeRevocations) PurgeExpired(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purges++
	if f.failPurge != nil {
		return 0, f.failPurge
	}
	var purged int64
	now := time.Now()
	for tokenString, rec := range f.records {
		if !rec.ExpiresAt.After(now) {
			delete(f.records, tokenString)
			purged++
		}
	}
	return purged, nil
}

func (f *fakeRevocations) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

type fakeUsers struct {
	mu      sync.Mutex
	byID    map[string]model.User
	revoked *fakeRevocations
}

func newFakeUsers(revoked *fakeRevocations) *fakeUsers {
	return &fakeUsers{byID: map[string]model.User{}, revoked: revoked}
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			return u, nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (f *fakeUsers) FindByID(_ context.Context, id string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := f.FindByEmail(ctx, email)
	if err == nil {
		return true, nil
	}
	return false, nil
}

func (f *fakeUsers) Create(_ context.Context, u model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[u.ID] = u
	return nil
}

func (f *fakeUsers) MarkEmailVerified(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return model.ErrUserNotFound
	}
	now := time.Now().UTC()
	u.EmailVerified = &now
	f.byID[id] = u
	return nil
}

func (f *fakeUsers) UpdatePasswordAndRevoke(ctx context.Context, userID string, passwordHash string, rec model.RevocationRecord) error {
	f.mu.Lock()
	u, ok := f.byID[userID]
	if !ok {
		f.mu.Unlock()
		return model.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	f.byID[userID] = u
	f.mu.Unlock()

	return f.revoked.Revoke(ctx, rec.Token, rec.IssuedAt, rec.ExpiresAt)
}

func (f *fakeUsers) SoftDelete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok || u.DeletedAt != nil {
		return model.ErrUserNotFound
	}
	now := time.Now().UTC()
	u.DeletedAt = &now
	f.byID[id] = u
	return nil
}

func (f *fakeUsers) List(_ context.Context) ([]model.PublicUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	users := make([]model.PublicUser, 0, len(f.byID))
	for _, u := range f.byID {
		if u.DeletedAt != nil {
			continue
		}
		users = append(users, u.Public())
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users, nil
}

type fakeOtps struct {
	mu      sync.Mutex
	records []model.OtpRecord
	ttl     time.Duration
	now     func() time.Time
}

func newFakeOtps(ttl time.Duration) *fakeOtps {
	return &fakeOtps{ttl: ttl, now: time.Now}
}

func (f *fakeOtps) Generate(_ context.Context, target string, otpContext string) (model.OtpIssued, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	// Supersede-then-insert, matching the repository transaction.
	kept := f.records[:0]
	for _, rec := range f.records {
		if rec.Target != target || rec.Context != otpContext {
			kept = append(kept, rec)
		}
	}
	f.records = kept

	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return model.OtpIssued{}, err
	}

	now := f.now().UTC()
	rec := model.OtpRecord{
		ID:        uuid.NewString(),
		Digits:    fmt.Sprintf("%06d", n.Int64()),
		Target:    target,
		Context:   otpContext,
		ExpiresAt: now.Add(f.ttl),
		CreatedAt: now,
	}
	f.records = append(f.records, rec)
	return model.OtpIssued{Digits: rec.Digits, ExpiresAt: rec.ExpiresAt}, nil
}

func (f *fakeOtps) Verify(_ context.Context, digits string, target string, otpContext string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := len(f.records) - 1; i >= 0; i-- {
		rec := f.records[i]
		if rec.Digits != digits || rec.Target != target || rec.Context != otpContext || rec.IsUsed {
			continue
		}
		if f.now().UTC().After(rec.ExpiresAt) {
			return model.ErrOtpExpired
		}
		f.records[i].IsUsed = true
		return nil
	}
	return model.ErrOtpNotFound
}

func (f *fakeOtps) activeCount(target string, otpContext string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, rec := range f.records {
		if rec.Target == target && rec.Context == otpContext && !rec.IsUsed && f.now().UTC().Before(rec.ExpiresAt) {
			count++
		}
	}
	return count
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []mail.Message
}

func (f *fakeNotifier) Enqueue(msg mail.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
}

func (f *fakeNotifier) last() (mail.Message, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		return mail.Message{}, false
	}
	return f.messages[len(f.messages)-1], true
}
