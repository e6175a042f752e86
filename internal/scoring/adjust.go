package scoring

import (
	"github.com/jonathan/health-assessment/internal/catalog"
	"github.com/jonathan/health-assessment/internal/types"
)

// qualitative subtracts symptom penalties from their mapped pillars. A symptom
// without its own assessment context is looked up under the scored type.
func (p *Pipeline) qualitative(prev types.PillarScores, assessmentType string, symptoms []types.Symptom) types.PillarScores {
	scores := prev.Clone()
	if p.tables == nil {
		return finish(scores, round2)
	}
	for _, symptom := range symptoms {
		reportedUnder := symptom.Assessment
		if reportedUnder == "" {
			reportedUnder = assessmentType
		}
		pillar, penalty := p.tables.SymptomPenalty(reportedUnder, symptom.Name)
		if pillar.Valid() {
			scores[pillar] -= penalty
		}
	}
	return finish(scores, round2)
}

// objective applies a status delta per biomarker reading. Readings beyond a
// critical bound use the critical delta instead of low or high, and normal
// readings inside the optimal band use the optimal delta.
func (p *Pipeline) objective(prev types.PillarScores, readings []types.BiomarkerReading) types.PillarScores {
	scores := prev.Clone()
	if p.tables == nil {
		return finish(scores, round2)
	}
	for _, reading := range readings {
		status := string(types.StatusUnknown)
		if p.classifier != nil {
			c := p.classifier.Classification(reading)
			status = string(c.Status)
			switch {
			case c.Critical:
				status = catalog.StatusCritical
			case c.Optimal:
				status = catalog.StatusOptimal
			}
		}
		pillar := p.tables.BiomarkerPillar(reading.Name)
		if pillar.Valid() {
			scores[pillar] += p.tables.StatusDelta(status)
		}
	}
	return finish(scores, round2)
}

// intentionality adds goal boosts to their mapped pillars.
func (p *Pipeline) intentionality(prev types.PillarScores, goals []string) types.PillarScores {
	scores := prev.Clone()
	if p.tables == nil {
		return finish(scores, round2)
	}
	for _, goal := range goals {
		pillar, boost := p.tables.GoalBoost(goal)
		if pillar.Valid() {
			scores[pillar] += boost
		}
	}
	return finish(scores, round2)
}
