package s3

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestObjectKey(t *testing.T) {
	org := uuid.New()

	key := ObjectKey(org, "attachment", "../Scan Result.PDF")
	assert.True(t, strings.HasPrefix(key, "uploads/"+org.String()+"/attachment/"))
	assert.True(t, strings.HasSuffix(key, ".pdf"))
	assert.True(t, InOrg(org, key))

	assert.False(t, InOrg(uuid.New(), key))
	assert.False(t, InOrg(org, OrgPrefix(org)+"../other/x.pdf"))
}
