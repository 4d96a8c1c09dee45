// Package dashboard aggregates partner-scoped figures consumed by the
// dashboard views. The partner identifier is always an explicit
// parameter; nothing here is bound to a partner instance.
package dashboard

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zalama/partner-dashboard/internal/domain/entity"
	"github.com/zalama/partner-dashboard/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Overview bundles the headline figures for one partner
type Overview struct {
	TotalEmployees      int                        `json:"total_employees"`
	TotalTransactions   int                        `json:"total_transactions"`
	TotalDemandes       int                        `json:"total_demandes"`
	PendingDemandes     int                        `json:"pending_demandes"`
	UnreadNotifications int                        `json:"unread_notifications"`
	Remboursements      *entity.ReimbursementStats `json:"remboursements"`
	Finances            *entity.FinancialStats     `json:"finances"`
}

// Service computes dashboard aggregates
type Service struct {
	employees      *repository.EmployeeRepository
	transactions   *repository.TransactionRepository
	advances       *repository.AdvanceRepository
	remboursements *repository.RemboursementRepository
	notifications  *repository.NotificationRepository
	logger         *zap.Logger
}

// NewService creates a new dashboard service
func NewService(
	employees *repository.EmployeeRepository,
	transactions *repository.TransactionRepository,
	advances *repository.AdvanceRepository,
	remboursements *repository.RemboursementRepository,
	notifications *repository.NotificationRepository,
	logger *zap.Logger,
) *Service {
	return &Service{
		employees:      employees,
		transactions:   transactions,
		advances:       advances,
		remboursements: remboursements,
		notifications:  notifications,
		logger:         logger,
	}
}

// PartnerOverview fans out the independent queries and assembles the
// partner's dashboard figures.
func (s *Service) PartnerOverview(ctx context.Context, partnerID string) (*Overview, error) {
	var (
		overview     Overview
		transactions []*entity.Transaction
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		employees, err := s.employees.ListByPartner(gctx, partnerID)
		if err != nil {
			return err
		}
		overview.TotalEmployees = len(employees)
		return nil
	})

	g.Go(func() error {
		var err error
		transactions, err = s.transactions.ListByPartner(gctx, partnerID)
		return err
	})

	g.Go(func() error {
		advances, err := s.advances.ListByPartner(gctx, partnerID)
		if err != nil {
			return err
		}
		overview.TotalDemandes = len(advances)
		for _, a := range advances {
			if a.Statut == "En attente" {
				overview.PendingDemandes++
			}
		}
		return nil
	})

	g.Go(func() error {
		stats, err := s.remboursements.Stats(gctx, partnerID)
		if err != nil {
			return err
		}
		overview.Remboursements = stats
		return nil
	})

	g.Go(func() error {
		count, err := s.notifications.UnreadCount(gctx, partnerID)
		if err != nil {
			return err
		}
		overview.UnreadNotifications = count
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("Failed to build partner overview",
			zap.String("partenaire_id", partnerID),
			zap.Error(err))
		return nil, err
	}

	overview.TotalTransactions = len(transactions)
	overview.Finances = FinancialStatsFrom(transactions, time.Now())

	return &overview, nil
}

var moisCourts = []string{"Jan", "Fév", "Mar", "Avr", "Mai", "Jun", "Jul", "Aoû", "Sep", "Oct", "Nov", "Déc"}

// FinancialStatsFrom aggregates validated transactions into totals per
// type, overall balance, and the current year's monthly evolution.
func FinancialStatsFrom(transactions []*entity.Transaction, now time.Time) *entity.FinancialStats {
	stats := &entity.FinancialStats{TotalTransactions: len(transactions)}

	currentYear := now.Year()
	monthly := make([]entity.MonthlyBalance, 12)
	for i := range monthly {
		monthly[i].Mois = moisCourts[i]
	}

	var totalMontant decimal.Decimal
	for _, t := range transactions {
		totalMontant = totalMontant.Add(t.Montant)

		if t.Statut == entity.TransactionEnAttente {
			stats.PendingTransactions++
		}
		if t.Statut != entity.TransactionValide {
			continue
		}

		switch t.Type {
		case entity.TransactionDebloque:
			stats.TotalDebloque = stats.TotalDebloque.Add(t.Montant)
		case entity.TransactionRecupere:
			stats.TotalRecupere = stats.TotalRecupere.Add(t.Montant)
		case entity.TransactionRevenu:
			stats.TotalRevenus = stats.TotalRevenus.Add(t.Montant)
		case entity.TransactionRemboursement:
			stats.TotalRemboursements = stats.TotalRemboursements.Add(t.Montant)
		case entity.TransactionCommission:
			stats.TotalCommissions = stats.TotalCommissions.Add(t.Montant)
		}

		if t.DateTransaction.Year() == currentYear {
			m := int(t.DateTransaction.Month()) - 1
			switch t.Type {
			case entity.TransactionDebloque:
				monthly[m].Debloque = monthly[m].Debloque.Add(t.Montant)
			case entity.TransactionRecupere:
				monthly[m].Recupere = monthly[m].Recupere.Add(t.Montant)
			case entity.TransactionRevenu:
				monthly[m].Revenus = monthly[m].Revenus.Add(t.Montant)
			}
		}
	}

	for i := range monthly {
		monthly[i].Balance = monthly[i].Debloque.Sub(monthly[i].Recupere).Add(monthly[i].Revenus)
	}
	stats.EvolutionMensuelle = monthly

	if len(transactions) > 0 {
		stats.MontantMoyen = totalMontant.Div(decimal.NewFromInt(int64(len(transactions)))).Round(2)
	}
	stats.Balance = stats.TotalDebloque.Sub(stats.TotalRecupere).
		Add(stats.TotalRevenus).Sub(stats.TotalRemboursements)

	return stats
}
