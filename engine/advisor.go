package engine

import (
	"context"
	"sync"
)

// Second opinion from an external classifier.
type AdvisorOpinion struct {
	Appropriate bool     `json:"appropriate"`
	Severity    string   `json:"severity"`
	Reason      string   `json:"reason"`
	Tags        []string `json:"tags"`
}

// Optional secondary content classifier. Consulted only for messages the rule
// analyzer already found suspicious; its opinion can raise severity but never
// lower a rule-driven decision.
type Advisor interface {
	Moderate(ctx context.Context, content string) (*AdvisorOpinion, error)
}

// Daily call budget for the advisor. Failed calls are refunded so transient
// advisor outages do not burn through the quota.
type Quotas struct {
	mu           sync.Mutex
	advisorCalls int
}

func (q *Quotas) TryAdvisorCall(limit int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if limit > 0 && q.advisorCalls >= limit {
		return false
	}
	q.advisorCalls++
	return true
}

func (q *Quotas) RefundAdvisorCall() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.advisorCalls > 0 {
		q.advisorCalls--
	}
}

func (q *Quotas) AdvisorCallCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.advisorCalls
}

// Called by the sweeper at local midnight boundaries.
func (q *Quotas) ResetDaily() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.advisorCalls = 0
}
