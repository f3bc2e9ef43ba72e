package engine

import (
	"time"

	"nexustax/internal/model"

	"github.com/shopspring/decimal"
)

// approachingRatio marks a year as "approaching" when it reaches 90% of a
// threshold without crossing it.
var approachingRatio = decimal.NewFromFloat(0.9)

// YearNexus is the threshold evaluator's verdict for one calendar year.
type YearNexus struct {
	Year            int
	Status          string
	NexusDate       *time.Time
	ObligationStart *time.Time
	FirstNexusYear  *int
}

// EvaluateNexus runs the rule's lookback algorithm over the month buckets
// and returns one verdict per calendar year in the data's span, including
// empty years between the first and last sale (sticky nexus must propagate
// through them).
func EvaluateNexus(buckets []MonthBucket, rule *model.JurisdictionRule) []YearNexus {
	if len(buckets) == 0 || rule == nil {
		return nil
	}
	if rule.LookbackMethod == model.LookbackRolling12Month {
		return evaluateRolling(buckets, rule)
	}
	return evaluateCalendarYears(buckets, rule)
}

// evaluateCalendarYears walks each year's transactions in chronological
// order with running totals that reset every January 1 — unless a prior
// year already established nexus, in which case the year is sticky.
func evaluateCalendarYears(buckets []MonthBucket, rule *model.JurisdictionRule) []YearNexus {
	verdicts := make([]YearNexus, 0)
	var firstNexusYear *int

	for _, year := range yearsSpanned(buckets) {
		if firstNexusYear != nil {
			verdicts = append(verdicts, stickyYear(year, *firstNexusYear))
			continue
		}

		running := decimal.Zero
		count := 0
		var crossedAt *time.Time
		for i := range buckets {
			if buckets[i].Year != year {
				continue
			}
			for _, t := range buckets[i].Transactions {
				if !countsTowardThreshold(rule, &t) {
					continue
				}
				running = running.Add(t.GrossAmount)
				count++
				if thresholdMet(rule, running, count) {
					d := t.TransactionDate
					crossedAt = &d
					break
				}
			}
			if crossedAt != nil {
				break
			}
		}

		if crossedAt != nil {
			y := year
			firstNexusYear = &y
			obligation := firstOfNextMonth(*crossedAt)
			verdicts = append(verdicts, YearNexus{
				Year:            year,
				Status:          model.NexusHasNexus,
				NexusDate:       crossedAt,
				ObligationStart: &obligation,
				FirstNexusYear:  firstNexusYear,
			})
			continue
		}

		status := model.NexusNone
		if approachingThreshold(rule, running, count) {
			status = model.NexusApproaching
		}
		verdicts = append(verdicts, YearNexus{Year: year, Status: status})
	}

	return verdicts
}

// evaluateRolling slides a twelve-month window over a contiguous month
// timeline. The first window that meets the threshold triggers nexus in
// its ending month; from then on sticky nexus applies exactly as in the
// calendar-year method.
func evaluateRolling(buckets []MonthBucket, rule *model.JurisdictionRule) []YearNexus {
	timeline := contiguousTimeline(buckets)

	var (
		triggered    bool
		triggerYear  int
		nexusDate    time.Time
		obligation   time.Time
		approachedIn = make(map[int]bool)
	)

	for i := range timeline {
		windowRev := decimal.Zero
		windowCnt := 0
		lo := i - 11
		if lo < 0 {
			lo = 0
		}
		for j := lo; j < i; j++ {
			windowRev = windowRev.Add(measurableRevenue(&timeline[j], rule))
			windowCnt += measurableCount(&timeline[j], rule)
		}

		month := &timeline[i]
		monthRev := measurableRevenue(month, rule)
		monthCnt := measurableCount(month, rule)

		if thresholdMet(rule, windowRev.Add(monthRev), windowCnt+monthCnt) {
			// Replay the ending month transaction by transaction on top of
			// the prior eleven months to find the crossing sale. The window
			// sum can only newly meet the threshold through this month's
			// activity, so a crossing transaction always exists.
			running := windowRev
			count := windowCnt
			nexusDate = month.Start()
			for _, t := range month.Transactions {
				if !countsTowardThreshold(rule, &t) {
					continue
				}
				running = running.Add(t.GrossAmount)
				count++
				if thresholdMet(rule, running, count) {
					nexusDate = t.TransactionDate
					break
				}
			}
			triggered = true
			triggerYear = month.Year
			obligation = firstOfNextMonth(month.Start())
			break
		}

		if approachingThreshold(rule, windowRev.Add(monthRev), windowCnt+monthCnt) {
			approachedIn[month.Year] = true
		}
	}

	verdicts := make([]YearNexus, 0)
	var firstNexusYear *int
	for _, year := range yearsSpanned(buckets) {
		switch {
		case triggered && year == triggerYear:
			y := year
			firstNexusYear = &y
			nd := nexusDate
			ob := obligation
			verdicts = append(verdicts, YearNexus{
				Year:            year,
				Status:          model.NexusHasNexus,
				NexusDate:       &nd,
				ObligationStart: &ob,
				FirstNexusYear:  firstNexusYear,
			})
		case firstNexusYear != nil:
			verdicts = append(verdicts, stickyYear(year, *firstNexusYear))
		case approachedIn[year]:
			verdicts = append(verdicts, YearNexus{Year: year, Status: model.NexusApproaching})
		default:
			verdicts = append(verdicts, YearNexus{Year: year, Status: model.NexusNone})
		}
	}

	return verdicts
}

// stickyYear builds the verdict for a year after nexus was established:
// has_nexus with the obligation running from January 1, regardless of that
// year's sales level.
func stickyYear(year, firstNexusYear int) YearNexus {
	fy := firstNexusYear
	ob := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return YearNexus{
		Year:            year,
		Status:          model.NexusHasNexus,
		ObligationStart: &ob,
		FirstNexusYear:  &fy,
	}
}

// countsTowardThreshold reports whether a transaction enters the threshold
// test. Marketplace sales are excluded when the rule says facilitator sales
// do not count; they still appear in the reported sales figures.
func countsTowardThreshold(rule *model.JurisdictionRule, t *model.SalesTransaction) bool {
	return rule.MarketplaceCounted || t.Channel != model.ChannelMarketplace
}

func measurableRevenue(b *MonthBucket, rule *model.JurisdictionRule) decimal.Decimal {
	if rule.MarketplaceCounted {
		return b.Gross
	}
	return b.Direct
}

func measurableCount(b *MonthBucket, rule *model.JurisdictionRule) int {
	if rule.MarketplaceCounted {
		return b.TxnCount
	}
	return b.DirectTxnCount
}

// thresholdMet applies the rule's combination operator. A nil threshold
// imposes no condition, so "and" degrades to whichever test is configured.
func thresholdMet(rule *model.JurisdictionRule, revenue decimal.Decimal, count int) bool {
	revMet := rule.RevenueThreshold != nil && revenue.GreaterThanOrEqual(*rule.RevenueThreshold)
	cntMet := rule.TransactionThreshold != nil && count >= *rule.TransactionThreshold
	if rule.ThresholdOperator == model.OperatorAnd {
		if rule.RevenueThreshold == nil {
			return cntMet
		}
		if rule.TransactionThreshold == nil {
			return revMet
		}
		return revMet && cntMet
	}
	return revMet || cntMet
}

// approachingThreshold reports whether totals sit at 90% or more of either
// configured threshold. Callers only invoke it when the threshold itself
// was not met, so the 100% upper bound is implicit.
func approachingThreshold(rule *model.JurisdictionRule, revenue decimal.Decimal, count int) bool {
	if rule.RevenueThreshold != nil && rule.RevenueThreshold.IsPositive() {
		if revenue.GreaterThanOrEqual(rule.RevenueThreshold.Mul(approachingRatio)) {
			return true
		}
	}
	if rule.TransactionThreshold != nil && *rule.TransactionThreshold > 0 {
		if count*10 >= *rule.TransactionThreshold*9 {
			return true
		}
	}
	return false
}

// yearsSpanned returns every calendar year from the first bucket's to the
// last bucket's, inclusive. Gap years with no sales still get a verdict so
// sticky nexus can propagate through them.
func yearsSpanned(buckets []MonthBucket) []int {
	first := buckets[0].Year
	last := buckets[len(buckets)-1].Year
	years := make([]int, 0, last-first+1)
	for y := first; y <= last; y++ {
		years = append(years, y)
	}
	return years
}

// contiguousTimeline fills calendar gaps between the first and last bucket
// with empty months so a window of twelve slice positions is always a
// window of twelve calendar months.
func contiguousTimeline(buckets []MonthBucket) []MonthBucket {
	if len(buckets) == 0 {
		return nil
	}
	startIdx := buckets[0].Year*12 + int(buckets[0].Month) - 1
	endIdx := buckets[len(buckets)-1].Year*12 + int(buckets[len(buckets)-1].Month) - 1

	timeline := make([]MonthBucket, 0, endIdx-startIdx+1)
	pos := 0
	for idx := startIdx; idx <= endIdx; idx++ {
		if pos < len(buckets) && buckets[pos].Year*12+int(buckets[pos].Month)-1 == idx {
			timeline = append(timeline, buckets[pos])
			pos++
			continue
		}
		timeline = append(timeline, MonthBucket{
			Year:  idx / 12,
			Month: time.Month(idx%12 + 1),
		})
	}
	return timeline
}

// firstOfNextMonth returns the first day of the month after d.
func firstOfNextMonth(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
}
