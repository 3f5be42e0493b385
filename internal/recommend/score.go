// Package recommend ranks available quilts against the current season,
// weather and past satisfaction.
package recommend

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/erazemk/odeje/internal/model"
)

// DefaultTopN is the number of recommendations returned when none is asked for.
const DefaultTopN = 3

// Weather sources reported in Result.
const (
	SourceReading  = "reading"
	SourceSeasonal = "seasonal"
)

// Confidence tiers.
const (
	TierHigh   = "high"
	TierMedium = "medium"
	TierLow    = "low"
)

// Preferences are optional user preferences.
type Preferences struct {
	Materials []string `json:"materials"`
}

// Input holds everything a scoring run depends on.
type Input struct {
	Now         time.Time
	Weather     *model.Weather // nil falls back to the seasonal reading
	Items       []model.Item
	Periods     map[int64][]model.UsagePeriod
	Preferences Preferences
	TopN        int
}

// Recommendation is one scored item.
type Recommendation struct {
	Item    model.Item `json:"item"`
	Score   float64    `json:"score"`
	Tier    string     `json:"tier"`
	Reasons []string   `json:"reasons"`
}

// Result is the outcome of a scoring run.
type Result struct {
	Season        model.Season     `json:"season"`
	Weather       model.Weather    `json:"weather"`
	WeatherSource string           `json:"weather_source"`
	Top           []Recommendation `json:"top"`
	Ranked        []Recommendation `json:"ranked"`
}

// Score ranks the AVAILABLE items in in. It is a pure function of its input.
func Score(in Input) Result {
	res := Result{Season: model.SeasonOf(in.Now), WeatherSource: SourceReading}
	if in.Weather != nil {
		res.Weather = *in.Weather
	} else {
		res.Weather = model.SeasonalWeather(in.Now)
		res.WeatherSource = SourceSeasonal
	}

	res.Ranked = []Recommendation{}
	for _, item := range in.Items {
		if item.Status != model.StatusAvailable || item.DeletedAt != nil {
			continue
		}
		res.Ranked = append(res.Ranked, scoreItem(item, in.Periods[item.ID], res.Season, res.Weather, in.Preferences))
	}
	sort.SliceStable(res.Ranked, func(i, j int) bool {
		a, b := res.Ranked[i], res.Ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Item.ID < b.Item.ID
	})

	top := in.TopN
	if top <= 0 {
		top = DefaultTopN
	}
	res.Top = res.Ranked[:min(top, len(res.Ranked))]
	return res
}

func scoreItem(item model.Item, periods []model.UsagePeriod, season model.Season, w model.Weather, prefs Preferences) Recommendation {
	var score float64
	reasons := []string{}

	// Season match.
	switch {
	case item.Season == season:
		score += 40
		reasons = append(reasons, fmt.Sprintf("Made for %s", seasonName(season)))
	case item.Season == model.SeasonSpringAutumn &&
		((season == model.SeasonWinter && w.Temperature < 15) || (season == model.SeasonSummer && w.Temperature > 20)):
		score += 25
		reasons = append(reasons, fmt.Sprintf("Transitional quilt suits %.1f°C", w.Temperature))
	}

	// Temperature fit by weight.
	switch {
	case w.Temperature < 10 && item.WeightGrams > 1500:
		score += 30
		reasons = append(reasons, fmt.Sprintf("Heavy enough for %.1f°C", w.Temperature))
	case w.Temperature > 25 && item.WeightGrams < 1000:
		score += 30
		reasons = append(reasons, fmt.Sprintf("Light enough for %.1f°C", w.Temperature))
	case w.Temperature >= 10 && w.Temperature <= 25 && item.WeightGrams >= 1000 && item.WeightGrams <= 1500:
		score += 25
		reasons = append(reasons, fmt.Sprintf("Medium weight fits %.1f°C", w.Temperature))
	}

	// Satisfaction from periods used in the same season.
	var sum, rated int
	for _, p := range periods {
		if p.SeasonUsed == season && p.Satisfaction != nil {
			sum += *p.Satisfaction
			rated++
		}
	}
	if rated > 0 {
		avg := float64(sum) / float64(rated)
		score += avg / 5 * 20
		reasons = append(reasons, fmt.Sprintf("Rated %.1f/5 in past %s use", avg, seasonName(season)))
	}

	// Material preference.
	if item.FillMaterial != "" && slices.ContainsFunc(prefs.Materials, func(m string) bool {
		return strings.EqualFold(strings.TrimSpace(m), item.FillMaterial)
	}) {
		score += 10
		reasons = append(reasons, fmt.Sprintf("Preferred material %s", item.FillMaterial))
	}

	// Humidity.
	material := strings.ToLower(item.FillMaterial)
	switch {
	case w.Humidity > 70 && strings.Contains(material, "down"):
		score -= 5
		reasons = append(reasons, fmt.Sprintf("Down fill is less suited to %.0f%% humidity", w.Humidity))
	case w.Humidity < 40 && strings.Contains(material, "cotton"):
		score += 5
		reasons = append(reasons, fmt.Sprintf("Cotton fill suits %.0f%% humidity", w.Humidity))
	}

	score = math.Round(min(max(score, 0), 100)*10) / 10
	return Recommendation{Item: item, Score: score, Tier: tier(score), Reasons: reasons}
}

func tier(score float64) string {
	switch {
	case score > 60:
		return TierHigh
	case score > 40:
		return TierMedium
	default:
		return TierLow
	}
}

func seasonName(s model.Season) string {
	switch s {
	case model.SeasonWinter:
		return "winter"
	case model.SeasonSummer:
		return "summer"
	default:
		return "spring/autumn"
	}
}
