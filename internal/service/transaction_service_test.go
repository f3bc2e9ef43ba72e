package service

import (
	"testing"

	"nexustax/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func validRow() TransactionRow {
	return TransactionRow{
		Jurisdiction:    "CA",
		TransactionDate: "2023-04-15",
		GrossAmount:     "199.99",
		ExemptAmount:    "10.00",
		Channel:         "direct",
		ExternalRef:     "INV-1001",
	}
}

func TestParseTransactionRow_Valid(t *testing.T) {
	studyID := uuid.New()

	tx, reason := parseTransactionRow(studyID, validRow())
	require.Empty(t, reason)
	require.NotNil(t, tx)

	assert.Equal(t, studyID, tx.StudyID)
	assert.Equal(t, "CA", tx.Jurisdiction)
	assert.Equal(t, 2023, tx.TransactionDate.Year())
	assert.True(t, tx.GrossAmount.Equal(mustDecimal(t, "199.99")))
	assert.True(t, tx.ExemptAmount.Equal(mustDecimal(t, "10.00")))
	assert.Equal(t, model.ChannelDirect, tx.Channel)
	assert.Equal(t, "INV-1001", tx.ExternalRef)
}

func TestParseTransactionRow_DefaultsChannelAndExempt(t *testing.T) {
	row := validRow()
	row.Channel = ""
	row.ExemptAmount = ""

	tx, reason := parseTransactionRow(uuid.New(), row)
	require.Empty(t, reason)
	assert.Equal(t, model.ChannelDirect, tx.Channel)
	assert.True(t, tx.ExemptAmount.IsZero())
}

func TestParseTransactionRow_RejectsBadRows(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*TransactionRow)
	}{
		{"bad jurisdiction", func(r *TransactionRow) { r.Jurisdiction = "CAL" }},
		{"missing date", func(r *TransactionRow) { r.TransactionDate = "" }},
		{"bad date format", func(r *TransactionRow) { r.TransactionDate = "15/04/2023" }},
		{"bad gross", func(r *TransactionRow) { r.GrossAmount = "abc" }},
		{"negative gross", func(r *TransactionRow) { r.GrossAmount = "-5.00" }},
		{"bad exempt", func(r *TransactionRow) { r.ExemptAmount = "oops" }},
		{"negative exempt", func(r *TransactionRow) { r.ExemptAmount = "-1.00" }},
		{"exempt exceeds gross", func(r *TransactionRow) { r.ExemptAmount = "500.00" }},
		{"unknown channel", func(r *TransactionRow) { r.Channel = "wholesale" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			row := validRow()
			tc.mutate(&row)

			tx, reason := parseTransactionRow(uuid.New(), row)
			assert.Nil(t, tx)
			assert.NotEmpty(t, reason)
		})
	}
}

func TestParseTransactionRow_MarketplaceChannel(t *testing.T) {
	row := validRow()
	row.Channel = "marketplace"

	tx, reason := parseTransactionRow(uuid.New(), row)
	require.Empty(t, reason)
	assert.Equal(t, model.ChannelMarketplace, tx.Channel)
}
