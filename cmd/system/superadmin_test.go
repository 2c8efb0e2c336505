package system

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/simward_backend/pkg/firebase"
	"github.com/Alijeyrad/simward_backend/pkg/firebase/firebasetest"
)

func TestEnsureFirebaseAccount(t *testing.T) {
	ctx := context.Background()
	idp := firebasetest.New()

	uid, err := ensureFirebaseAccount(ctx, idp, "root@example.com", "Root Admin")
	require.NoError(t, err)
	acct, ok := idp.Account(uid)
	require.True(t, ok)
	assert.Equal(t, "Root Admin", acct.DisplayName)

	again, err := ensureFirebaseAccount(ctx, idp, "root@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, uid, again, "existing accounts are reused")

	idp.AddToken("t", firebase.Identity{UID: "known", Email: "known@example.com"})
	got, err := ensureFirebaseAccount(ctx, idp, "known@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, "known", got)
}
