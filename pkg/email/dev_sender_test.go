package email_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/email"
)

func TestDevSender(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "emails")
	sender := email.NewDevSender(dir)

	err := sender.SendEmail(context.Background(), email.SendEmailParams{
		SendTo:   "user@example.com",
		Subject:  "Weekly Digest!",
		BodyText: "plain body",
		Tag:      "weekly digest",
	})
	require.NoError(t, err)

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)

	var body, meta string
	for _, f := range files {
		assert.Contains(t, f.Name(), "weekly_digest")
		switch {
		case strings.HasSuffix(f.Name(), ".txt"):
			body = filepath.Join(dir, f.Name())
		case strings.HasSuffix(f.Name(), ".json"):
			meta = filepath.Join(dir, f.Name())
		}
	}
	require.NotEmpty(t, body, "text-only mail is saved as .txt")
	require.NotEmpty(t, meta)

	content, err := os.ReadFile(body)
	require.NoError(t, err)
	assert.Equal(t, "plain body", string(content))

	raw, err := os.ReadFile(meta)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, "user@example.com", m["send_to"])
	assert.Equal(t, "Weekly Digest!", m["subject"])

	err = sender.SendEmail(context.Background(), email.SendEmailParams{SendTo: "bad"})
	assert.ErrorIs(t, err, email.ErrInvalidParams)
}
