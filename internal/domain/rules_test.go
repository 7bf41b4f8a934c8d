package domain

import (
	"testing"
	"time"
)

func TestRulesValidate(t *testing.T) {
	zero := 0
	tests := []struct {
		name    string
		mutate  func(r *Rules)
		wantErr bool
	}{
		{name: "defaults", mutate: func(r *Rules) {}},
		{name: "tiny hand", mutate: func(r *Rules) { r.HandSize = 2 }, wantErr: true},
		{name: "zero score limit", mutate: func(r *Rules) { r.ScoreLimit = &zero }, wantErr: true},
		{name: "no score limit", mutate: func(r *Rules) { r.ScoreLimit = nil }},
		{name: "empty comedy writer", mutate: func(r *Rules) { r.HouseRules.ComedyWriter = &ComedyWriter{} }, wantErr: true},
		{name: "bad mode", mutate: func(r *Rules) { r.Stages.Mode = "Lenient" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := DefaultRules()
			tt.mutate(&r)
			if err := r.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStagesTimeLimit(t *testing.T) {
	s := Stages{
		Mode:    TimeLimitSoft,
		Playing: StageRules{Duration: time.Minute},
		Judging: StageRules{},
	}
	if d, ok := s.TimeLimit(StagePlaying); !ok || d != time.Minute {
		t.Fatalf("TimeLimit(Playing) = %v, %v", d, ok)
	}
	if _, ok := s.TimeLimit(StageJudging); ok {
		t.Fatalf("untimed judging reported a limit")
	}
	if _, ok := s.TimeLimit(StageRevealing); ok {
		t.Fatalf("disabled revealing reported a limit")
	}
	s.Mode = TimeLimitNone
	if _, ok := s.TimeLimit(StagePlaying); ok {
		t.Fatalf("no time limit mode reported a limit")
	}
}
