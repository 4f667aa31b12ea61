package deploy

type Author struct {
	Name  string
	Email string
}

type Outcome string

const (
	OutcomeSynced     Outcome = "synced"      // directory-only mirror, no version control
	OutcomeNoChanges  Outcome = "no-changes"  // staged tree equals the last commit
	OutcomeStaged     Outcome = "staged"      // changes staged, commit left to the user
	OutcomeCommitted  Outcome = "committed"   // committed, push disabled or no remote
	OutcomeDeployed   Outcome = "deployed"    // committed and pushed
	OutcomePushFailed Outcome = "push-failed" // committed, push failed but was advisory
)

type Summary struct {
	TargetDir   string   `json:"targetDir"`
	RemoteURL   string   `json:"remoteURL"`
	Branch      string   `json:"branch"`
	FilesCopied int      `json:"filesCopied"`
	Commit      string   `json:"commit"`
	ReviewURL   string   `json:"reviewURL"`
	Warnings    []string `json:"warnings"`
}

type Result struct {
	State   State
	Outcome Outcome
	Summary Summary
}
