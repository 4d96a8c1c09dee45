package database

// migrations is the ordered list of schema migrations, embedded so the
// binary carries its own schema.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		SQL: `
			CREATE TABLE IF NOT EXISTS partners (
				id TEXT PRIMARY KEY,
				company_name TEXT NOT NULL,
				hr_email TEXT,
				rep_email TEXT,
				status TEXT NOT NULL DEFAULT 'approved',
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);

			CREATE TABLE IF NOT EXISTS employees (
				id TEXT PRIMARY KEY,
				partner_id TEXT NOT NULL REFERENCES partners(id),
				nom TEXT NOT NULL,
				prenom TEXT NOT NULL,
				email TEXT,
				telephone TEXT,
				poste TEXT,
				salaire_net TEXT NOT NULL DEFAULT '0',
				actif INTEGER NOT NULL DEFAULT 1,
				date_embauche DATETIME,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_employees_partner ON employees(partner_id);

			CREATE TABLE IF NOT EXISTS salary_advance_requests (
				id TEXT PRIMARY KEY,
				partenaire_id TEXT NOT NULL REFERENCES partners(id),
				employe_id TEXT NOT NULL REFERENCES employees(id),
				montant_demande TEXT NOT NULL,
				frais_service TEXT NOT NULL DEFAULT '0',
				type_motif TEXT,
				motif TEXT,
				statut TEXT NOT NULL DEFAULT 'En attente',
				date_creation DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				date_validation DATETIME
			);
			CREATE INDEX IF NOT EXISTS idx_advances_partner ON salary_advance_requests(partenaire_id);

			CREATE TABLE IF NOT EXISTS financial_transactions (
				id TEXT PRIMARY KEY,
				partenaire_id TEXT NOT NULL REFERENCES partners(id),
				employe_id TEXT REFERENCES employees(id),
				numero_transaction TEXT,
				type TEXT NOT NULL,
				statut TEXT NOT NULL DEFAULT 'En attente',
				montant TEXT NOT NULL,
				methode_paiement TEXT,
				date_transaction DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_transactions_partner ON financial_transactions(partenaire_id);

			CREATE TABLE IF NOT EXISTS remboursements (
				id TEXT PRIMARY KEY,
				pay_id TEXT UNIQUE,
				type_remboursement TEXT NOT NULL DEFAULT 'STANDARD',
				partenaire_id TEXT NOT NULL REFERENCES partners(id),
				employe_id TEXT NOT NULL REFERENCES employees(id),
				demande_avance_id TEXT REFERENCES salary_advance_requests(id),
				transaction_id TEXT,
				statut TEXT NOT NULL DEFAULT 'EN_ATTENTE',
				montant_total_remboursement TEXT NOT NULL,
				frais_service TEXT NOT NULL DEFAULT '0',
				numero_reception TEXT,
				message_paiement TEXT,
				date_creation DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				date_limite_remboursement DATETIME NOT NULL,
				date_remboursement_effectue DATETIME,
				date_annulation DATETIME,
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_remboursements_partner_statut ON remboursements(partenaire_id, statut);

			CREATE TABLE IF NOT EXISTS notifications (
				id TEXT PRIMARY KEY,
				partenaire_id TEXT NOT NULL,
				titre TEXT NOT NULL,
				message TEXT NOT NULL,
				type TEXT NOT NULL,
				lu INTEGER NOT NULL DEFAULT 0,
				metadata TEXT,
				idempotency_key TEXT,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE UNIQUE INDEX IF NOT EXISTS ux_notifications_idempotency
				ON notifications(idempotency_key) WHERE idempotency_key IS NOT NULL;
			CREATE INDEX IF NOT EXISTS idx_notifications_partner ON notifications(partenaire_id, lu);

			CREATE TABLE IF NOT EXISTS historique_remboursements (
				id TEXT PRIMARY KEY,
				remboursement_id TEXT NOT NULL REFERENCES remboursements(id),
				action TEXT NOT NULL,
				description TEXT,
				montant_avant TEXT,
				montant_apres TEXT,
				statut_avant TEXT NOT NULL,
				statut_apres TEXT NOT NULL,
				utilisateur_id TEXT,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_historique_remboursement ON historique_remboursements(remboursement_id);
		`,
	},
	{
		Version: 2,
		Name:    "webhook_events",
		SQL: `
			CREATE TABLE IF NOT EXISTS webhook_events (
				id TEXT PRIMARY KEY,
				transaction_id TEXT NOT NULL,
				event_kind TEXT NOT NULL,
				payload TEXT NOT NULL,
				received_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				UNIQUE(transaction_id, event_kind)
			);
		`,
	},
}
