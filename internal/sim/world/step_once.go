package world

// TickLogEntry records everything needed to reproduce one step: the commands
// applied before it and the digest after it.
type TickLogEntry struct {
	Tick     uint32    `json:"tick"`
	Commands []Command `json:"commands,omitempty"`
	Digest   string    `json:"digest"`
	Counts   Counts    `json:"counts"`
}

// AuditEntry is written for every command a client sends, accepted or not.
type AuditEntry struct {
	Tick   uint32  `json:"tick"`
	Client string  `json:"client"`
	Cmd    Command `json:"cmd"`
	OK     bool    `json:"ok"`
	Reason string  `json:"reason,omitempty"`
}

// StepOnce applies cmds in order, advances the game by one step and returns
// the log entry for it. Rejected commands still appear in the entry so a
// replay sees the same input.
func (g *Game) StepOnce(cmds []Command) (TickLogEntry, []CommandResult, error) {
	results := make([]CommandResult, 0, len(cmds))
	for _, c := range cmds {
		r, err := g.Apply(c)
		results = append(results, r)
		if err != nil {
			return TickLogEntry{}, results, err
		}
	}
	if err := g.Step(); err != nil {
		return TickLogEntry{}, results, err
	}
	entry := TickLogEntry{
		Tick:     g.tick,
		Commands: cmds,
		Digest:   g.StateDigest(),
		Counts:   g.Counts(),
	}
	return entry, results, nil
}
