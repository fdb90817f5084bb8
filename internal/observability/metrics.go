package observability

import "github.com/prometheus/client_golang/prometheus"

// Domain counters complement the HTTP metrics recorded by middleware.Metrics.
// They count successful business events only.
var (
	// SignupsTotal counts accounts created.
	SignupsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "movies_signups_total",
		Help: "Total number of user signups.",
	})

	// LoginsTotal counts login attempts by result ("success" or "failure").
	LoginsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "movies_logins_total",
		Help: "Total number of login attempts by result.",
	}, []string{"result"})

	// RatingsTotal counts ratings created, by star value.
	RatingsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "movies_ratings_total",
		Help: "Total number of ratings by stars.",
	}, []string{"stars"})

	// CommentsTotal counts comments created, by kind ("comment" or "reply").
	CommentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "movies_comments_total",
		Help: "Total number of comments by kind.",
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(SignupsTotal, LoginsTotal, RatingsTotal, CommentsTotal)
}
