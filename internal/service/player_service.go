package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/dom/empire-backend/internal/domain"
	"github.com/dom/empire-backend/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PlayerService struct {
	repos     *repository.Repositories
	modifiers *ModifierService
	resources *ResourceService
	now       Clock
}

func NewPlayerService(repos *repository.Repositories, modifiers *ModifierService, resources *ResourceService, now Clock) *PlayerService {
	return &PlayerService{repos: repos, modifiers: modifiers, resources: resources, now: now}
}

// CreatePlayer creates a neutral player with starter resources and starts its
// production clock. id is the subject of the caller's access token; uuid.Nil
// assigns a fresh one.
func (s *PlayerService) CreatePlayer(ctx context.Context, id uuid.UUID, name string) (*domain.Player, error) {
	if id == uuid.Nil {
		id = uuid.New()
	} else if _, err := s.repos.Player.GetByID(ctx, id); err == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrPlayerExists, id)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if _, err := s.repos.Player.GetByName(ctx, name); err == nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrNameTaken, name)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := s.now()
	player := &domain.Player{
		ID:      id,
		Name:    name,
		Faction: domain.FactionNeutral,
	}

	err := s.repos.Tx.Transaction(ctx, func(repos *repository.Repositories) error {
		if err := repos.Player.Create(ctx, player); err != nil {
			return err
		}

		res := &domain.PlayerResource{
			PlayerID:    player.ID,
			ProducedAt:  now,
			CollectedAt: now,
		}
		res.SetStored(domain.Amounts{
			Food:  domain.StarterFood,
			Wood:  domain.StarterWood,
			Stone: domain.StarterStone,
			Gold:  domain.StarterGold,
		})
		res.SetCaps(domain.Amounts{
			Food:  domain.DefaultStorageCap,
			Wood:  domain.DefaultStorageCap,
			Stone: domain.DefaultStorageCap,
			Gold:  domain.DefaultStorageCap,
		})
		if err := repos.Resource.Create(ctx, res); err != nil {
			return err
		}
		return repos.Accumulator.Create(ctx, &domain.PlayerAccumulator{PlayerID: player.ID})
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.resources.ScheduleNextTick(ctx, player.ID); err != nil {
		log.Printf("ERROR [PlayerService.CreatePlayer] scheduling production for %s: %v", player.ID, err)
	}

	log.Printf("INFO [PlayerService.CreatePlayer] created player %s (%s)", player.Name, player.ID)
	return player, nil
}

func (s *PlayerService) GetPlayer(ctx context.Context, playerID uuid.UUID) (*domain.Player, error) {
	player, err := s.repos.Player.GetByID(ctx, playerID)
	if err != nil {
		return nil, notFound(err, "player %s", playerID)
	}
	return player, nil
}

// DeletePlayer removes the player and every row that belongs to it.
// Its pending production job fails on the next claim and is not rescheduled.
func (s *PlayerService) DeletePlayer(ctx context.Context, playerID uuid.UUID) error {
	if err := s.repos.Player.Delete(ctx, playerID); err != nil {
		return notFound(err, "player %s", playerID)
	}
	s.modifiers.InvalidateCache(playerID)
	return nil
}

// ChangeFaction swaps the faction-granted modifiers in one transaction. A player
// leaving Neutral also receives the starter buildings it does not own yet.
func (s *PlayerService) ChangeFaction(ctx context.Context, playerID uuid.UUID, faction domain.Faction) (*domain.Player, error) {
	if !faction.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidFaction, faction)
	}

	// Settle production at the old rates before the modifier set changes.
	if _, err := s.resources.Produce(ctx, playerID, nil); err != nil {
		return nil, err
	}

	var (
		player    *domain.Player
		starters  int
		unchanged bool
	)
	err := s.repos.Tx.Transaction(ctx, func(repos *repository.Repositories) error {
		var err error
		player, err = repos.Player.GetByID(ctx, playerID)
		if err != nil {
			return notFound(err, "player %s", playerID)
		}
		if player.Faction == faction {
			unchanged = true
			return nil
		}

		previous := player.Faction
		player.Faction = faction
		if err := repos.Player.Update(ctx, player); err != nil {
			return err
		}

		current, err := repos.ActiveModifier.ListBySource(ctx, playerID, domain.SourceFaction)
		if err != nil {
			return err
		}
		for _, am := range current {
			if err := s.modifiers.removeInTx(ctx, repos, am, domain.ActionRemoved); err != nil {
				return err
			}
		}

		granted, err := repos.Modifier.ListFactionModifiers(ctx, faction)
		if err != nil {
			return err
		}
		for _, fm := range granted {
			sourceID := fm.ID
			_, err := s.modifiers.applyInTx(ctx, repos, ApplyModifierInput{
				PlayerID:   playerID,
				ModifierID: fm.ModifierID,
				Source:     domain.SourceFaction,
				SourceID:   &sourceID,
			})
			if err != nil {
				return err
			}
		}

		if previous != domain.FactionNeutral || faction == domain.FactionNeutral {
			return nil
		}
		starters, err = s.grantStarters(ctx, repos, playerID, faction)
		return err
	})
	if err != nil {
		return nil, err
	}
	if unchanged {
		return player, nil
	}

	s.modifiers.InvalidateCache(playerID)
	if starters > 0 {
		if err := s.resources.SyncStorageCaps(ctx, playerID); err != nil {
			log.Printf("ERROR [PlayerService.ChangeFaction] syncing storage caps for %s: %v", playerID, err)
		}
	}

	log.Printf("INFO [PlayerService.ChangeFaction] player %s joined %s", playerID, faction)
	return player, nil
}

func (s *PlayerService) grantStarters(ctx context.Context, repos *repository.Repositories, playerID uuid.UUID, faction domain.Faction) (int, error) {
	buildings, err := repos.Building.ListStarters(ctx, faction)
	if err != nil {
		return 0, err
	}
	owned, err := repos.PlayerBuilding.ListByPlayer(ctx, playerID)
	if err != nil {
		return 0, err
	}

	have := make(map[uuid.UUID]bool, len(owned))
	for _, pb := range owned {
		have[pb.BuildingID] = true
	}

	created := 0
	for _, b := range buildings {
		if have[b.ID] {
			continue
		}
		pb := &domain.PlayerBuilding{
			ID:         uuid.New(),
			PlayerID:   playerID,
			BuildingID: b.ID,
			Level:      1,
		}
		if err := repos.PlayerBuilding.Create(ctx, pb); err != nil {
			return 0, err
		}
		created++
	}
	return created, nil
}
