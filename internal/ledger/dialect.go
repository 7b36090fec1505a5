package ledger

import (
	"errors"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/radieske/league-wager-engine/internal/domain"
)

// Dialect isola as diferenças entre Postgres (lib/pq) e SQLite (modernc)
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// errUnique sinaliza violação de unicidade; quem chama traduz para o erro de domínio
var errUnique = errors.New("unique violation")

// rebind converte placeholders ? para $N no Postgres
func (d Dialect) rebind(q string) string {
	if d != Postgres {
		return q
	}
	var sb strings.Builder
	sb.Grow(len(q) + 8)
	n := 1
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			n++
			continue
		}
		sb.WriteByte(q[i])
	}
	return sb.String()
}

func (d Dialect) serial() string {
	if d == Postgres {
		return "BIGSERIAL PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

// translate mapeia erros do driver para os sentinelas do ledger
func (d Dialect) translate(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return errors.Join(domain.ErrConcurrentModification, err)
		case "23505": // unique_violation
			return errors.Join(errUnique, err)
		}
		return err
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"), strings.Contains(msg, "PRIMARY KEY constraint failed"):
		return errors.Join(errUnique, err)
	case strings.Contains(msg, "database is locked"), strings.Contains(msg, "SQLITE_BUSY"):
		return errors.Join(domain.ErrConcurrentModification, err)
	}
	return err
}
