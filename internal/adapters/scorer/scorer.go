// Package scorer вычисляет приоритет элементов: свежесть + вовлечённость + бонусы провайдера.
package scorer

import (
	"math"
	"regexp"
	"strings"
	"time"

	"devfeed/internal/domain"
)

const day = 24 * time.Hour

// rule задаёт веса одного провайдера.
type rule struct {
	window           time.Duration
	recencyWeight    float64
	engagementWeight float64
	engagement       func(s domain.Signals) float64
	bonus            func(p domain.Post, sc domain.ScoreContext) float64
}

// Бонусы.
const (
	BonusHelpfulLabel      = 5.0
	BonusUnanswered        = 2.0
	BonusPreferredLanguage = 5.0
	BonusTopic             = 2.0
	BonusDescription       = 3.0
	BonusAskHN             = 3.5
	BonusTutorial          = 2.5
	BonusRelease           = 2.0
	BonusSelfPost          = 1.0

	minDescriptionLength = 20
)

var (
	helpfulLabels = []string{"good first issue", "good-first-issue", "help wanted", "help-wanted", "beginner", "easy", "first-timers-only"}
	helpfulTopics = []string{"beginner-friendly", "tutorial", "learning", "education", "good-first-issue", "hacktoberfest", "documentation", "awesome"}

	tutorialPattern = regexp.MustCompile(`(?i)\b(tutorial|guide|how to|getting started|introduction to|walkthrough)\b`)
	releasePattern  = regexp.MustCompile(`(?i)\b(release[ds]?|announcing|v?\d+\.\d+(\.\d+)?)\b`)
)

var rules = map[domain.ProviderType]rule{
	domain.ProviderDiscourse: {
		window: 7 * day, recencyWeight: 10, engagementWeight: 3,
		engagement: func(s domain.Signals) float64 {
			return float64(s.Likes+s.Replies) + float64(s.Views)/10
		},
		bonus: func(_ domain.Post, sc domain.ScoreContext) float64 {
			if sc.Signals.Unanswered {
				return BonusUnanswered
			}
			return 0
		},
	},
	domain.ProviderIssues: {
		window: 30 * day, recencyWeight: 8, engagementWeight: 3,
		engagement: func(s domain.Signals) float64 { return float64(s.Comments + s.Reactions) },
		bonus: func(p domain.Post, sc domain.ScoreContext) float64 {
			labels := sc.Signals.Labels
			if len(labels) == 0 {
				labels = p.Tags
			}
			for _, l := range labels {
				if containsFold(helpfulLabels, l) {
					return BonusHelpfulLabel
				}
			}
			return 0
		},
	},
	domain.ProviderTrending: {
		window: 7 * day, recencyWeight: 6, engagementWeight: 2.5,
		engagement: func(s domain.Signals) float64 { return float64(s.Stars + s.Forks) },
		bonus:      trendingBonus,
	},
	domain.ProviderHackerNews: {
		window: 2 * day, recencyWeight: 8, engagementWeight: 3,
		engagement: func(s domain.Signals) float64 { return float64(s.Points + s.Comments) },
		bonus: func(p domain.Post, sc domain.ScoreContext) float64 {
			if sc.Signals.StoryKind == "ask" || strings.HasPrefix(p.Title, "Ask HN") {
				return BonusAskHN
			}
			return 0
		},
	},
	domain.ProviderReddit: {
		window: 2 * day, recencyWeight: 6, engagementWeight: 3,
		engagement: func(s domain.Signals) float64 { return float64(s.Upvotes + s.Comments) },
		bonus: func(_ domain.Post, sc domain.ScoreContext) float64 {
			if sc.Signals.SelfPost {
				return BonusSelfPost
			}
			return 0
		},
	},
	domain.ProviderRSS: {
		window: 14 * day, recencyWeight: 10, engagementWeight: 0,
		engagement: func(domain.Signals) float64 { return 0 },
		bonus: func(p domain.Post, _ domain.ScoreContext) float64 {
			var b float64
			if tutorialPattern.MatchString(p.Title) {
				b += BonusTutorial
			}
			if releasePattern.MatchString(p.Title) {
				b += BonusRelease
			}
			return b
		},
	},
}

func trendingBonus(_ domain.Post, sc domain.ScoreContext) float64 {
	var b float64
	var preferred, topical []string
	if cfg, ok := sc.Config.(*domain.TrendingConfig); ok && cfg != nil {
		preferred = cfg.PreferredLanguages
		topical = cfg.Topics
	}
	if sc.Signals.Language != "" && containsFold(preferred, sc.Signals.Language) {
		b += BonusPreferredLanguage
	}
	for _, topic := range sc.Signals.Topics {
		if containsFold(helpfulTopics, topic) || containsFold(topical, topic) {
			b += BonusTopic
		}
	}
	if len([]rune(strings.TrimSpace(sc.Signals.Description))) >= minDescriptionLength {
		b += BonusDescription
	}
	return b
}

// Scorer реализует domain.Scorer.
type Scorer struct{}

// New создаёт скорер.
func New() *Scorer {
	return &Scorer{}
}

// Score возвращает неотрицательный приоритет элемента.
func (s *Scorer) Score(post domain.Post, sc domain.ScoreContext) float64 {
	r, ok := rules[sc.Provider]
	if !ok {
		return 0
	}
	now := sc.Now
	if now.IsZero() {
		now = time.Now()
	}
	score := r.recencyWeight*recency(now.Sub(post.PostedAt), r.window) +
		r.engagementWeight*math.Log10(1+math.Max(0, r.engagement(sc.Signals))) +
		r.bonus(post, sc)
	if score < 0 || math.IsNaN(score) {
		return 0
	}
	return math.Round(score*1000) / 1000
}

func recency(age, window time.Duration) float64 {
	if age < 0 {
		age = 0
	}
	if window <= 0 {
		return 0
	}
	return math.Max(0, 1-float64(age)/float64(window))
}

func containsFold(list []string, value string) bool {
	value = strings.TrimSpace(value)
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), value) {
			return true
		}
	}
	return false
}

var _ domain.Scorer = (*Scorer)(nil)
