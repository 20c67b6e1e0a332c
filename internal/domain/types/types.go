// Package types contains common types used across the application
package types

// TaskStat is a team's result on one challenge.
type TaskStat struct {
	Points int   `json:"points"`
	Time   int64 `json:"time"`
}

// Standing is one row of the scoreboard.
type Standing struct {
	Pos        int                 `json:"pos"`
	Team       string              `json:"team"`
	Score      int                 `json:"score"`
	TaskStats  map[string]TaskStat `json:"taskStats"`
	LastAccept int64               `json:"lastAccept"`
}

// Scoreboard is the ranked standings plus the list of challenge ids.
type Scoreboard struct {
	Tasks     []string   `json:"tasks"`
	Standings []Standing `json:"standings"`
}

// Solved maps challenge id to the solve moment in epoch milliseconds.
type Solved map[string]int64

// SubmitRequest is the body of a signed-hash submission.
type SubmitRequest struct {
	ChallengeID string `json:"challengeId"`
	Proof       string `json:"proof"`
}

// Nonces carries a pair of hex encoded nonce points.
type Nonces struct {
	KPublic    string `json:"kPublic"`
	KTwoPublic string `json:"kTwoPublic"`
}

// Step1Request opens an interactive session.
type Step1Request struct {
	KPublic    string `json:"kPublic"`
	KTwoPublic string `json:"kTwoPublic"`
	PublicKey  string `json:"publicKey"`
}

// Step1Response returns the session id and the server nonces.
type Step1Response struct {
	SessionID         string `json:"sessionId"`
	ServerPublicNonce Nonces `json:"serverPublicNonce"`
}

// Step2Request completes an interactive session.
type Step2Request struct {
	SessionID string `json:"sessionId"`
	Signature string `json:"signature"`
	Message   string `json:"message"`
}

// AuditEntry is a recorded solve together with its proof.
type AuditEntry struct {
	TeamID      string `json:"teamId"`
	ChallengeID string `json:"challengeId"`
	Moment      int64  `json:"moment"`
	Proof       string `json:"proof"`
	Verified    bool   `json:"verified"`
}

// TeamSummary is the public view of a team; members are never listed.
type TeamSummary struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Countries []string `json:"countries"`
}

// ErrorItem is one element of an error response.
type ErrorItem struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Location string `json:"location,omitempty"`
	Param    string `json:"param,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Errors []ErrorItem `json:"errors"`
}
