package betting

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/radieske/league-wager-engine/internal/domain"
	"github.com/radieske/league-wager-engine/internal/ledger"
)

// NewLeague são os dados de criação de uma liga
type NewLeague struct {
	ID              string
	Name            string
	Settings        domain.Settings
	StartingCapital int64
}

// CreateLeague cria a liga com o principal como OWNER e credita o capital inicial
func (e *Engine) CreateLeague(ctx context.Context, p domain.Principal, in NewLeague) (domain.League, error) {
	if p.System || p.MemberID == "" {
		return domain.League{}, fmt.Errorf("%w: league owner must be a member", domain.ErrForbidden)
	}
	if in.Name == "" || in.StartingCapital < 0 {
		return domain.League{}, fmt.Errorf("%w: league needs a name and non-negative capital", domain.ErrInvalidLeague)
	}
	if in.Settings == (domain.Settings{}) {
		in.Settings = domain.DefaultSettings()
	}
	if err := in.Settings.Validate(); err != nil {
		return domain.League{}, err
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}

	var out domain.League
	err := e.run(ctx, "create_league", func(tx ledger.Tx, _ *emitter) error {
		l := domain.League{
			ID:              in.ID,
			Name:            in.Name,
			OwnerID:         p.MemberID,
			Settings:        in.Settings.Normalize(),
			StartingCapital: in.StartingCapital,
		}
		if err := tx.InsertLeague(ctx, &l); err != nil {
			return err
		}
		m := domain.Member{LeagueID: l.ID, ID: p.MemberID, Role: domain.RoleOwner, PowerUps: map[domain.PowerUp]int{}}
		if err := tx.InsertMember(ctx, &m); err != nil {
			return err
		}
		if err := ledger.Grant(ctx, tx, &m, l.StartingCapital); err != nil {
			return err
		}
		out = l
		return nil
	})
	return out, err
}

// JoinLeague adiciona o principal como MEMBER; entrar de novo devolve o membro existente
func (e *Engine) JoinLeague(ctx context.Context, p domain.Principal, leagueID string) (domain.Member, error) {
	if p.System || p.MemberID == "" {
		return domain.Member{}, fmt.Errorf("%w: system principal cannot join", domain.ErrForbidden)
	}

	var out domain.Member
	err := e.run(ctx, "join_league", func(tx ledger.Tx, _ *emitter) error {
		l, err := tx.GetLeague(ctx, leagueID)
		if err != nil {
			return err
		}
		existing, err := tx.GetMember(ctx, leagueID, p.MemberID)
		if err == nil {
			out = existing
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		m := domain.Member{LeagueID: l.ID, ID: p.MemberID, Role: domain.RoleMember, PowerUps: map[domain.PowerUp]int{}}
		if err := tx.InsertMember(ctx, &m); err != nil {
			return err
		}
		if err := ledger.Grant(ctx, tx, &m, l.StartingCapital); err != nil {
			return err
		}
		out = m
		return nil
	})
	return out, err
}

// UpdateSettings aplica o patch sobre a configuração atual (OWNER/ADMIN).
// Bets já resolvidas não são recalculadas.
func (e *Engine) UpdateSettings(ctx context.Context, p domain.Principal, leagueID string, patch domain.SettingsPatch) (domain.League, error) {
	var out domain.League
	err := e.run(ctx, "update_settings", func(tx ledger.Tx, _ *emitter) error {
		if err := manager(ctx, tx, leagueID, p); err != nil {
			return err
		}
		l, err := tx.GetLeague(ctx, leagueID)
		if err != nil {
			return err
		}
		s := patch.Apply(l.Settings)
		if err := s.Validate(); err != nil {
			return err
		}
		l.Settings = s.Normalize()
		if err := tx.UpdateLeague(ctx, &l); err != nil {
			return err
		}
		out = l
		return nil
	})
	return out, err
}

// GrantPowerUp adiciona tokens de power-up ao inventário de um membro (OWNER/ADMIN)
func (e *Engine) GrantPowerUp(ctx context.Context, p domain.Principal, leagueID, memberID string, pu domain.PowerUp, count int) (domain.Member, error) {
	if pu == domain.PowerUpNone || !pu.Valid() || count <= 0 {
		return domain.Member{}, fmt.Errorf("%w: grant %d of %q", domain.ErrPowerUpUnavailable, count, pu)
	}

	var out domain.Member
	err := e.run(ctx, "grant_power_up", func(tx ledger.Tx, _ *emitter) error {
		if err := manager(ctx, tx, leagueID, p); err != nil {
			return err
		}
		m, err := tx.GetMember(ctx, leagueID, memberID)
		if err != nil {
			return err
		}
		if m.PowerUps == nil {
			m.PowerUps = map[domain.PowerUp]int{}
		}
		m.PowerUps[pu] += count
		if err := tx.UpdateMember(ctx, &m); err != nil {
			return err
		}
		out = m
		return nil
	})
	return out, err
}

func manager(ctx context.Context, tx ledger.Reader, leagueID string, p domain.Principal) error {
	if p.System {
		return nil
	}
	m, err := member(ctx, tx, leagueID, p)
	if err != nil {
		return err
	}
	if !m.CanManage() {
		return fmt.Errorf("%w: %s is not an owner or admin", domain.ErrForbidden, p.MemberID)
	}
	return nil
}

// SetRole promove ou rebaixa um membro; só o dono da liga pode, e o dono não muda de papel
func (e *Engine) SetRole(ctx context.Context, p domain.Principal, leagueID, memberID string, role domain.Role) (domain.Member, error) {
	if role != domain.RoleAdmin && role != domain.RoleMember {
		return domain.Member{}, fmt.Errorf("%w: role %q", domain.ErrInvalidLeague, role)
	}

	var out domain.Member
	err := e.run(ctx, "set_role", func(tx ledger.Tx, _ *emitter) error {
		l, err := tx.GetLeague(ctx, leagueID)
		if err != nil {
			return err
		}
		if !p.System && p.MemberID != l.OwnerID {
			return fmt.Errorf("%w: only the owner assigns roles", domain.ErrForbidden)
		}
		m, err := tx.GetMember(ctx, leagueID, memberID)
		if err != nil {
			return err
		}
		if m.Role == domain.RoleOwner {
			return fmt.Errorf("%w: owner role is fixed", domain.ErrInvalidLeague)
		}
		m.Role = role
		if err := tx.UpdateMember(ctx, &m); err != nil {
			return err
		}
		out = m
		return nil
	})
	return out, err
}
