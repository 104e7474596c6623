package stripe

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPixSimulator(t *testing.T) {
	ctx := context.Background()

	t.Run("refuses to run in production", func(t *testing.T) {
		_, err := NewPixSimulator("production")
		assert.Error(t, err)
	})

	t.Run("fabricates a pix intent with emv payload", func(t *testing.T) {
		sim, err := NewPixSimulator("development")
		assert.NoError(t, err)

		out, err := sim.CreatePixIntent(ctx, PixIntentInput{
			StudentID: "stu-1", PlanID: "plan-1", FinalAmount: 95, OriginalAmount: 100, Discount: 5,
		})

		assert.NoError(t, err)
		assert.True(t, strings.HasPrefix(out.Intent.ID, "pi_mock_"))
		assert.Equal(t, "requires_action", out.Intent.Status)
		assert.Equal(t, int64(9500), out.Intent.Amount)
		assert.True(t, out.Intent.HasMethodType("pix"))
		assert.Equal(t, "true", out.Intent.Metadata["mock"])
		assert.Contains(t, out.QRCode, "br.gov.bcb.pix")
		assert.Contains(t, out.QRCode, "95.00")
		assert.Contains(t, out.QRCodeBase64, "api.qrserver.com")
	})

	t.Run("consecutive intents are distinct", func(t *testing.T) {
		sim, _ := NewPixSimulator("test")

		a, err := sim.CreatePixIntent(ctx, PixIntentInput{FinalAmount: 10})
		assert.NoError(t, err)
		b, err := sim.CreatePixIntent(ctx, PixIntentInput{FinalAmount: 10})
		assert.NoError(t, err)

		assert.NotEqual(t, a.Intent.ID, b.Intent.ID)
		assert.NotEqual(t, a.QRCode, b.QRCode)
	})
}

func TestToCents(t *testing.T) {
	assert.Equal(t, int64(10000), ToCents(100))
	assert.Equal(t, int64(9500), ToCents(95))
	// Classic float trap: 19.90 * 100 is 1989.9999... without rounding.
	assert.Equal(t, int64(1990), ToCents(19.90))
	assert.Equal(t, int64(670), ToCents(6.7))
}
