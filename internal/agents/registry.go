// Copyright (C) 2026 Geogate AI (oss@geogate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agents

import (
	"context"

	"github.com/geogate-ai/geogate/internal/records"
	"github.com/geogate-ai/geogate/internal/router"
)

// humanReview emits a fixed REVIEW verdict. Rows routed to it were already
// judged to need a person; there is nothing for rules or the model to add.
type humanReview struct{}

func (humanReview) Name() string { return router.HumanReviewAgent }

func (humanReview) Check(_ context.Context, _ records.Feature) (Verdict, error) {
	return Verdict{
		Agent:     router.HumanReviewAgent,
		Status:    StatusReview,
		Score:     0.5,
		Reasoning: "Routed for human review.",
	}, nil
}

// Resolve maps a routed agent name to its checker. Region-specialist names
// resolve to the general scorecard under their own reported name. Unknown
// names return false and the runner logs and skips them.
func Resolve(name string, opts Options) (Checker, bool) {
	switch name {
	case router.ChildSafetyAgent:
		return NewChildSafety(opts), true
	case router.PrivacyAgent:
		return NewPrivacy(opts), true
	case router.ModerationAgent:
		return NewModeration(opts), true
	case router.GeneralComplianceAgent:
		return NewGeneralCompliance(opts), true
	case router.HumanReviewAgent:
		return humanReview{}, true
	case router.CaliforniaPrivacyAgent, router.FloridaMinorsAgent,
		router.EUComplianceAgent, router.SingaporePDPAAgent:
		return NewRegionSpecialist(name, opts), true
	default:
		return nil, false
	}
}
