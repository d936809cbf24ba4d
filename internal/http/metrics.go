package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ancient_arch_login_attempts_total",
		Help: "Login attempts by outcome.",
	}, []string{"result"})

	examSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ancient_arch_exam_submissions_total",
		Help: "Qualification exam submissions by outcome.",
	}, []string{"result"})
)
