package model

// SynthProblem is one request sent to the synthesizer.
type SynthProblem struct {
	ID           int            `json:"id"`
	VarNames     []string       `json:"varNames"`
	PreviousEnvs map[string]Env `json:"previousEnvs"`
	Envs         []Env          `json:"envs"`
	OptEnvs      []Env          `json:"optEnvs"`
}

// SynthResult is the synthesizer's answer to a problem.
type SynthResult struct {
	ID      int    `json:"id"`
	Success bool   `json:"success"`
	Result  string `json:"result,omitempty"`
}
