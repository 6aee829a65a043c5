package engine

import "os"

// runRollback deletes every destination path the operation created, in
// reverse creation order so children go before their parent directories.
// Deletion is best-effort: individual failures are logged and skipped,
// never retried. The terminal cancelled event is emitted only after this
// returns.
func (t *Transfers) runRollback(op *transferOp) {
	op.mu.Lock()
	created := make([]string, len(op.created))
	copy(created, op.created)
	op.mu.Unlock()

	var failed int
	for i := len(created) - 1; i >= 0; i-- {
		if err := os.Remove(created[i]); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			failed++
			t.log.Warn().Str("path", created[i]).Err(err).Msg("rollback deletion failed")
		}
	}
	if failed > 0 {
		t.log.Warn().Str("transfer", op.id).Int("failed", failed).Msg("rollback finished with failures")
	} else if len(created) > 0 {
		t.log.Info().Str("transfer", op.id).Int("deleted", len(created)).Msg("rollback finished")
	}
}
