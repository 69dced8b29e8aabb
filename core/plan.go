// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

// PlanDraft is a structured development-plan document produced by the
// generation pipeline. The validate tags define the target schema;
// a draft that fails validation is never surfaced to callers.
type PlanDraft struct {
	Title      string      `json:"title" validate:"required,min=3"`
	Summary    string      `json:"summary" validate:"required"`
	Objectives []string    `json:"objectives" validate:"required,min=1,dive,required"`
	Phases     []PlanPhase `json:"phases" validate:"required,min=1,dive"`
	Risks      []PlanRisk  `json:"risks" validate:"omitempty,dive"`
}

// PlanPhase is one stage of a development plan.
type PlanPhase struct {
	Name  string     `json:"name" validate:"required"`
	Goal  string     `json:"goal" validate:"required"`
	Tasks []PlanTask `json:"tasks" validate:"required,min=1,dive"`
}

// PlanTask is a single unit of work within a phase.
type PlanTask struct {
	Description string  `json:"description" validate:"required"`
	EffortDays  float64 `json:"effort_days" validate:"gte=0"`
}

// PlanRisk describes a risk called out by the plan, with severity
// restricted to a small fixed vocabulary.
type PlanRisk struct {
	Description string `json:"description" validate:"required"`
	Severity    string `json:"severity" validate:"required,oneof=low medium high"`
	Mitigation  string `json:"mitigation"`
}
