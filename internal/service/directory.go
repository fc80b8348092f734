package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/account-service/internal/auth"
	"github.com/iliyamo/account-service/internal/model"
	"github.com/iliyamo/account-service/internal/queue"
	"github.com/iliyamo/account-service/internal/repository"
)

// publishTimeout bounds how long a mutation waits on the broker.
const publishTimeout = 2 * time.Second

type actorKey struct{}

// ContextWithActor records the id of the authenticated caller so that
// emitted events can name who made a change.
func ContextWithActor(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

func actorFrom(ctx context.Context) string {
	id, _ := ctx.Value(actorKey{}).(string)
	return id
}

// NormalizeEmail trims and lower-cases an address. Every lookup and write
// goes through it, so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Directory is the user data-access contract on top of a UserStore. It
// hashes passwords, stamps timestamps, translates store errors and emits
// lifecycle events.
type Directory struct {
	store  repository.UserStore
	hasher auth.Hasher
	events EventPublisher
	log    zerolog.Logger
	now    func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewDirectory(store repository.UserStore, hasher auth.Hasher, events EventPublisher, log zerolog.Logger) *Directory {
	if events == nil {
		events = NopPublisher{}
	}
	return &Directory{store: store, hasher: hasher, events: events, log: log, now: time.Now}
}

// storeErr maps repository failures onto service sentinels.
func storeErr(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrEmailExists):
		return ErrDuplicateEmail
	default:
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
	}
}

func policyErr(err error) error {
	if errors.Is(err, auth.ErrEmptyPassword) || errors.Is(err, auth.ErrPasswordTooShort) || errors.Is(err, auth.ErrPasswordTooLong) {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return err
}

// ValidID reports whether id is well-formed for the configured store.
func (d *Directory) ValidID(id string) bool { return d.store.ValidID(id) }

// Ping checks the backing store.
func (d *Directory) Ping(ctx context.Context) error { return d.store.Ping(ctx) }

// FindByEmail returns ErrNotFound when no account uses email.
func (d *Directory) FindByEmail(ctx context.Context, email string) (model.User, error) {
	u, err := d.store.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return model.User{}, storeErr("find by email", err)
	}
	return u, nil
}

// FindByID returns ErrNotFound for unknown and for malformed ids.
func (d *Directory) FindByID(ctx context.Context, id string) (model.User, error) {
	if !d.store.ValidID(id) {
		return model.User{}, ErrNotFound
	}
	u, err := d.store.GetByID(ctx, id)
	if err != nil {
		return model.User{}, storeErr("find by id", err)
	}
	return u, nil
}

// Create registers a new account. The email lookup is only an early exit;
// the store's unique constraint decides races.
func (d *Directory) Create(ctx context.Context, in model.NewUser) (model.User, error) {
	email := NormalizeEmail(in.Email)
	first := strings.TrimSpace(in.FirstName)
	last := strings.TrimSpace(in.LastName)
	if email == "" || first == "" || last == "" {
		return model.User{}, fmt.Errorf("%w: email, first_name and last_name are required", ErrValidation)
	}
	role := in.Role
	if role == "" {
		role = model.RoleUser
	}
	if !role.Valid() {
		return model.User{}, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}

	_, err := d.store.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return model.User{}, ErrDuplicateEmail
	case !errors.Is(err, repository.ErrNotFound):
		return model.User{}, storeErr("create", err)
	}

	hash, err := d.hasher.Hash(in.Password)
	if err != nil {
		return model.User{}, policyErr(err)
	}
	now := d.now().UTC()
	u, err := d.store.Insert(ctx, model.User{
		Email:        email,
		FirstName:    first,
		LastName:     last,
		PasswordHash: hash,
		IsActive:     !in.Inactive,
		IsVerified:   in.IsVerified,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return model.User{}, storeErr("create", err)
	}
	d.log.Info().Str("user_id", u.ID).Str("role", string(u.Role)).Msg("user created")
	d.publish(ctx, queue.EventUserCreated, u, nil)
	return u, nil
}

// Update applies a patch. Only the fields present change; updated_at is
// refreshed on every successful call.
func (d *Directory) Update(ctx context.Context, id string, patch model.UserPatch) (model.User, error) {
	if !d.store.ValidID(id) {
		return model.User{}, ErrNotFound
	}
	upd := repository.UserUpdate{UpdatedAt: d.now().UTC()}
	var fields []string

	if patch.Email != nil {
		email := NormalizeEmail(*patch.Email)
		if email == "" {
			return model.User{}, fmt.Errorf("%w: email must not be empty", ErrValidation)
		}
		upd.Email = &email
		fields = append(fields, "email")
	}
	if patch.FirstName != nil {
		v := strings.TrimSpace(*patch.FirstName)
		if v == "" {
			return model.User{}, fmt.Errorf("%w: first_name must not be empty", ErrValidation)
		}
		upd.FirstName = &v
		fields = append(fields, "first_name")
	}
	if patch.LastName != nil {
		v := strings.TrimSpace(*patch.LastName)
		if v == "" {
			return model.User{}, fmt.Errorf("%w: last_name must not be empty", ErrValidation)
		}
		upd.LastName = &v
		fields = append(fields, "last_name")
	}
	if patch.Password != nil {
		hash, err := d.hasher.Hash(*patch.Password)
		if err != nil {
			return model.User{}, policyErr(err)
		}
		upd.PasswordHash = &hash
		fields = append(fields, "password")
	}
	if patch.IsActive != nil {
		upd.IsActive = patch.IsActive
		fields = append(fields, "is_active")
	}
	if patch.IsVerified != nil {
		upd.IsVerified = patch.IsVerified
		fields = append(fields, "is_verified")
	}
	if patch.Role != nil {
		if !patch.Role.Valid() {
			return model.User{}, fmt.Errorf("%w: unknown role %q", ErrValidation, *patch.Role)
		}
		upd.Role = patch.Role
		fields = append(fields, "role")
	}

	u, err := d.store.Update(ctx, id, upd)
	if err != nil {
		return model.User{}, storeErr("update", err)
	}
	d.log.Info().Str("user_id", u.ID).Strs("fields", fields).Msg("user updated")
	d.publish(ctx, queue.EventUserUpdated, u, fields)
	return u, nil
}

// Authenticate checks a password. Unknown email and wrong password both
// yield ErrInvalidCredentials after comparable work. The active flag is not
// checked here.
func (d *Directory) Authenticate(ctx context.Context, email, password string) (model.User, error) {
	u, err := d.store.GetByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		d.hasher.Verify(password, d.dummy())
		return model.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return model.User{}, storeErr("authenticate", err)
	}
	if !d.hasher.Verify(password, u.PasswordHash) {
		return model.User{}, ErrInvalidCredentials
	}
	return u, nil
}

// dummy returns a credential used to spend verification time on unknown
// emails.
func (d *Directory) dummy() string {
	d.dummyOnce.Do(func() {
		h, err := d.hasher.Hash("timing-equalizer-not-a-password")
		if err != nil {
			d.log.Warn().Err(err).Msg("dummy credential unavailable")
			return
		}
		d.dummyHash = h
	})
	return d.dummyHash
}

// Delete reports false when id does not resolve.
func (d *Directory) Delete(ctx context.Context, id string) (bool, error) {
	if !d.store.ValidID(id) {
		return false, nil
	}
	u, err := d.store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, storeErr("delete", err)
	}
	deleted, err := d.store.Delete(ctx, id)
	if err != nil {
		return false, storeErr("delete", err)
	}
	if deleted {
		d.log.Info().Str("user_id", id).Msg("user deleted")
		d.publish(ctx, queue.EventUserDeleted, u, nil)
	}
	return deleted, nil
}

// List returns one page of users and the total count.
func (d *Directory) List(ctx context.Context, skip, limit int) ([]model.User, int64, error) {
	users, err := d.store.List(ctx, skip, limit)
	if err != nil {
		return nil, 0, storeErr("list", err)
	}
	total, err := d.store.Count(ctx)
	if err != nil {
		return nil, 0, storeErr("count", err)
	}
	return users, total, nil
}

// publish never fails the caller; broker problems are only logged.
func (d *Directory) publish(ctx context.Context, typ string, u model.User, fields []string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	ev := queue.UserEvent{
		Type:       typ,
		UserID:     u.ID,
		Email:      u.Email,
		Role:       string(u.Role),
		ActorID:    actorFrom(ctx),
		Fields:     fields,
		OccurredAt: d.now().UTC(),
	}
	if err := d.events.Publish(ctx, ev); err != nil {
		d.log.Warn().Err(err).Str("event", typ).Str("user_id", u.ID).Msg("event publish failed")
	}
}
