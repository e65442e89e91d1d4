package auth

import (
    "context"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/vendorpay/vendorpay/internal/store"
)

func newTestService(t *testing.T) (*Service, store.Store) {
    t.Helper()
    hash, err := HashSecret("s3cret-pass")
    require.NoError(t, err)
    st := store.NewMemory()
    return NewService(NewCredentialAuthenticator("operator", hash), st, nil), st
}

func TestHashSecretRejectsShortSecrets(t *testing.T) {
    _, err := HashSecret("abc")
    assert.ErrorIs(t, err, ErrSecretTooShort)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
    svc, st := newTestService(t)
    ctx := context.Background()

    _, err := svc.Login(ctx, "operator", "wrong")
    assert.ErrorIs(t, err, ErrInvalidCredentials)
    _, err = svc.Login(ctx, "intruder", "s3cret-pass")
    assert.ErrorIs(t, err, ErrInvalidCredentials)

    assert.False(t, svc.IsAuthenticated())
    _, err = st.Get(ctx, store.KeyAuthenticated)
    assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLoginLogoutLifecycle(t *testing.T) {
    svc, st := newTestService(t)
    ctx := context.Background()

    sess, err := svc.Login(ctx, "operator", "s3cret-pass")
    require.NoError(t, err)
    assert.NotEmpty(t, sess.Token)
    assert.True(t, svc.IsAuthenticated())

    flag, err := st.Get(ctx, store.KeyAuthenticated)
    require.NoError(t, err)
    assert.Equal(t, "true", flag)

    got, err := svc.Validate(sess.Token)
    require.NoError(t, err)
    assert.Equal(t, "operator", got.Identity)
    _, err = svc.Validate("other")
    assert.ErrorIs(t, err, ErrNoSession)

    // a fresh process picks the session up from the store
    restarted := NewService(NewCredentialAuthenticator("operator", ""), st, nil)
    require.NoError(t, restarted.Load(ctx))
    _, err = restarted.Validate(sess.Token)
    assert.NoError(t, err)

    require.NoError(t, svc.Logout(ctx))
    assert.False(t, svc.IsAuthenticated())
    _, err = svc.Validate(sess.Token)
    assert.ErrorIs(t, err, ErrNoSession)
    _, err = st.Get(ctx, store.KeyAuthenticated)
    assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSecondLoginReplacesSession(t *testing.T) {
    svc, _ := newTestService(t)
    ctx := context.Background()

    first, err := svc.Login(ctx, "operator", "s3cret-pass")
    require.NoError(t, err)
    second, err := svc.Login(ctx, "operator", "s3cret-pass")
    require.NoError(t, err)

    _, err = svc.Validate(first.Token)
    assert.ErrorIs(t, err, ErrNoSession)
    _, err = svc.Validate(second.Token)
    assert.NoError(t, err)
}
