package mail_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/storefront/pkg/mail"
)

func TestRenderConfirm(t *testing.T) {
	body, err := mail.Render("confirm", map[string]any{
		"Username": "<ada>", "Code": "123456", "Minutes": 15,
	})
	require.NoError(t, err)
	assert.Contains(t, body, "123456")
	assert.Contains(t, body, "&lt;ada&gt;")
}

func TestRenderOrderPlaced(t *testing.T) {
	body, err := mail.Render("order_placed", map[string]any{
		"Username": "ada",
		"OrderID":  "abc",
		"Total":    200.0,
		"Lines":    []map[string]any{{"Quantity": 2, "Name": "Shirt", "Subtotal": 200.0}},
	})
	require.NoError(t, err)
	assert.Contains(t, body, "2 × Shirt (200.00)")
}

func TestRenderUnknown(t *testing.T) {
	_, err := mail.Render("nope", nil)
	assert.Error(t, err)
}

func TestSMTPRequiresRecipients(t *testing.T) {
	err := mail.NewSMTPMailer(mail.SMTP{Host: "localhost", Port: "2525"}).Send(context.Background(), mail.Message{})
	assert.EqualError(t, err, "mail: no recipients")
}

func TestLogMailer(t *testing.T) {
	assert.NoError(t, mail.LogMailer{}.Send(context.Background(), mail.Message{To: []string{"a@b.c"}}))
}
