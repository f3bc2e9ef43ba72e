package engine

import (
	"testing"

	"nexustax/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func yearResult(year int, tax, interest, penalties string) model.JurisdictionYearResult {
	t := dec(tax)
	i := dec(interest)
	p := dec(penalties)
	return model.JurisdictionYearResult{
		Jurisdiction:       "CA",
		Year:               year,
		NexusStatus:        model.NexusHasNexus,
		BaseTax:            t,
		Interest:           i,
		Penalties:          p,
		EstimatedLiability: t.Add(i).Add(p),
	}
}

func TestCompareVDAWaivesPenaltiesAndCapsLookback(t *testing.T) {
	results := []model.JurisdictionYearResult{
		yearResult(2019, "1000.00", "300.00", "100.00"), // outside a 36-month lookback from mid-2023
		yearResult(2021, "2000.00", "200.00", "200.00"),
		yearResult(2022, "3000.00", "100.00", "300.00"),
	}
	program := &model.VDAProgram{
		Jurisdiction:    "CA",
		LookbackMonths:  36,
		InterestWaived:  dec("0"),
		PenaltiesWaived: dec("1"),
	}

	cmp := CompareVDA("CA", results, program, day("2023-07-01"))
	require.Len(t, cmp.Lines, 3)

	// 2019 ended before the July 2020 cutoff.
	assert.False(t, cmp.Lines[0].InWindow)
	assert.True(t, cmp.Lines[0].VDATotal.IsZero())
	assert.True(t, cmp.Lines[0].StandardTotal.Equal(dec("1400.00")))

	assert.True(t, cmp.Lines[1].InWindow)
	assert.True(t, cmp.Lines[1].VDAPenalties.IsZero())
	assert.True(t, cmp.Lines[1].VDAInterest.Equal(dec("200.00")))
	assert.True(t, cmp.Lines[1].VDATotal.Equal(dec("2200.00")))

	assert.True(t, cmp.StandardTotal.Equal(dec("7200.00")))
	assert.True(t, cmp.VDATotal.Equal(dec("5300.00")), "got %s", cmp.VDATotal)
	assert.True(t, cmp.Savings.Equal(dec("1900.00")))
}

func TestCompareVDAPartialWaivers(t *testing.T) {
	results := []model.JurisdictionYearResult{
		yearResult(2022, "1000.00", "400.00", "200.00"),
	}
	program := &model.VDAProgram{
		Jurisdiction:    "CA",
		LookbackMonths:  48,
		InterestWaived:  dec("0.5"),
		PenaltiesWaived: dec("0.75"),
	}

	cmp := CompareVDA("CA", results, program, day("2023-07-01"))
	require.Len(t, cmp.Lines, 1)
	line := cmp.Lines[0]
	assert.True(t, line.VDAInterest.Equal(dec("200.00")), "got %s", line.VDAInterest)
	assert.True(t, line.VDAPenalties.Equal(dec("50.00")), "got %s", line.VDAPenalties)
	assert.True(t, line.VDATotal.Equal(dec("1250.00")))
}

func TestCompareVDAClampsWaiverFractions(t *testing.T) {
	results := []model.JurisdictionYearResult{
		yearResult(2022, "1000.00", "100.00", "100.00"),
	}
	program := &model.VDAProgram{
		Jurisdiction:    "CA",
		LookbackMonths:  48,
		InterestWaived:  dec("-0.5"),
		PenaltiesWaived: dec("2"),
	}

	cmp := CompareVDA("CA", results, program, day("2023-07-01"))
	assert.True(t, cmp.InterestWaived.IsZero())
	assert.True(t, cmp.PenaltiesWaived.Equal(dec("1")))
	assert.True(t, cmp.Lines[0].VDAInterest.Equal(dec("100.00")))
	assert.True(t, cmp.Lines[0].VDAPenalties.IsZero())
}

func TestCompareVDADoesNotMutateResults(t *testing.T) {
	results := []model.JurisdictionYearResult{
		yearResult(2022, "1000.00", "400.00", "200.00"),
	}
	before := results[0]

	program := &model.VDAProgram{Jurisdiction: "CA", LookbackMonths: 12, PenaltiesWaived: dec("1")}
	_ = CompareVDA("CA", results, program, day("2023-07-01"))

	assert.Equal(t, before, results[0])
}
