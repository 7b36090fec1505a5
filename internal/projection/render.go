package projection

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

// Render imprime a classificação em tabela, na ordem da projeção
func Render(w io.Writer, p Projection) error {
	table := tablewriter.NewWriter(w)
	table.Header("#", "Member", "Settled", "At stake", "Projected", "Δ", "Settled #")

	for _, e := range p.Entries {
		if err := table.Append(
			strconv.Itoa(e.ProjectedRank),
			e.MemberID,
			strconv.FormatInt(e.Settled, 10),
			strconv.FormatInt(e.AtStake, 10),
			strconv.FormatInt(e.Projected, 10),
			fmt.Sprintf("%+d", e.Projected-e.Settled),
			strconv.Itoa(e.SettledRank),
		); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	for _, b := range p.Bets {
		fmt.Fprintf(w, "  %s  %d-%d (%s)\n", b.BetID, b.Score.Home, b.Score.Away, b.Source)
	}
	fmt.Fprintf(w, "  league %s, generated %s\n", p.LeagueID, p.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	return nil
}
