package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// Le DDL reste dans l'intersection PostgreSQL / SQLite : TEXT pour les
// identifiants et enums, BIGINT pour les compteurs, TIMESTAMP pour les dates.

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	email         TEXT,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL,
	updated_at    TIMESTAMP NOT NULL
)`

const createCharactersTable = `
CREATE TABLE IF NOT EXISTS characters (
	id             TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL REFERENCES users(id),
	name           TEXT NOT NULL,
	faction        TEXT NOT NULL,
	level          INTEGER NOT NULL DEFAULT 1,
	xp             BIGINT NOT NULL DEFAULT 0,
	gold           BIGINT NOT NULL DEFAULT 0,
	might          INTEGER NOT NULL DEFAULT 0,
	finesse        INTEGER NOT NULL DEFAULT 0,
	fortitude      INTEGER NOT NULL DEFAULT 0,
	arcana         INTEGER NOT NULL DEFAULT 0,
	insight        INTEGER NOT NULL DEFAULT 0,
	presence       INTEGER NOT NULL DEFAULT 0,
	unspent_points INTEGER NOT NULL DEFAULT 0,
	rating         INTEGER NOT NULL DEFAULT 1000,
	wins           INTEGER NOT NULL DEFAULT 0,
	losses         INTEGER NOT NULL DEFAULT 0,
	current_hp     INTEGER NOT NULL DEFAULT 0,
	created_at     TIMESTAMP NOT NULL,
	updated_at     TIMESTAMP NOT NULL
)`

const createCharactersUserIndex = `
CREATE INDEX IF NOT EXISTS idx_characters_user_id ON characters(user_id)`

const createCharactersRatingIndex = `
CREATE INDEX IF NOT EXISTS idx_characters_rating ON characters(rating DESC)`

// Un utilisateur ne peut pas avoir deux personnages du même nom
const createCharactersNameIndex = `
CREATE UNIQUE INDEX IF NOT EXISTS idx_characters_user_name ON characters(user_id, name)`

const createEquipmentTable = `
CREATE TABLE IF NOT EXISTS equipment (
	id           TEXT PRIMARY KEY,
	character_id TEXT NOT NULL REFERENCES characters(id),
	name         TEXT NOT NULL,
	type         TEXT NOT NULL,
	rarity       TEXT NOT NULL,
	item_level   INTEGER NOT NULL DEFAULT 1,
	might        INTEGER NOT NULL DEFAULT 0,
	finesse      INTEGER NOT NULL DEFAULT 0,
	fortitude    INTEGER NOT NULL DEFAULT 0,
	arcana       INTEGER NOT NULL DEFAULT 0,
	insight      INTEGER NOT NULL DEFAULT 0,
	presence     INTEGER NOT NULL DEFAULT 0,
	mounted_slot TEXT,
	created_at   TIMESTAMP NOT NULL
)`

const createEquipmentCharacterIndex = `
CREATE INDEX IF NOT EXISTS idx_equipment_character_id ON equipment(character_id)`

// Un seul objet monté par emplacement et par personnage (I6)
const createEquipmentMountIndex = `
CREATE UNIQUE INDEX IF NOT EXISTS idx_equipment_mount
	ON equipment(character_id, mounted_slot) WHERE mounted_slot IS NOT NULL`

const createMatchHistoryTable = `
CREATE TABLE IF NOT EXISTS match_history (
	id           TEXT PRIMARY KEY,
	combat_id    TEXT NOT NULL,
	mode         TEXT NOT NULL,
	winner_id    TEXT,
	loser_id     TEXT,
	winner_name  TEXT NOT NULL,
	loser_name   TEXT NOT NULL,
	winner_delta INTEGER NOT NULL DEFAULT 0,
	loser_delta  INTEGER NOT NULL DEFAULT 0,
	turns        INTEGER NOT NULL DEFAULT 0,
	duration_ms  BIGINT NOT NULL DEFAULT 0,
	reason       TEXT NOT NULL,
	created_at   TIMESTAMP NOT NULL
)`

const createMatchHistoryWinnerIndex = `
CREATE INDEX IF NOT EXISTS idx_match_history_winner ON match_history(winner_id, created_at DESC)`

const createMatchHistoryLoserIndex = `
CREATE INDEX IF NOT EXISTS idx_match_history_loser ON match_history(loser_id, created_at DESC)`

const createDailyStatsTable = `
CREATE TABLE IF NOT EXISTS daily_stats (
	character_id TEXT NOT NULL REFERENCES characters(id),
	day          TEXT NOT NULL,
	wins         INTEGER NOT NULL DEFAULT 0,
	losses       INTEGER NOT NULL DEFAULT 0,
	damage_dealt BIGINT NOT NULL DEFAULT 0,
	gold_earned  BIGINT NOT NULL DEFAULT 0,
	xp_earned    BIGINT NOT NULL DEFAULT 0,
	PRIMARY KEY (character_id, day)
)`

// RunMigrations exécute les migrations de base de données
func RunMigrations(db *sqlx.DB) error {
	logrus.Info("Running database migrations...")

	migrationList := []string{
		createUsersTable,
		createCharactersTable,
		createCharactersUserIndex,
		createCharactersRatingIndex,
		createCharactersNameIndex,
		createEquipmentTable,
		createEquipmentCharacterIndex,
		createEquipmentMountIndex,
		createMatchHistoryTable,
		createMatchHistoryWinnerIndex,
		createMatchHistoryLoserIndex,
		createDailyStatsTable,
	}

	for i, migration := range migrationList {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	logrus.WithField("migrations", len(migrationList)).Info("Database migrations completed")
	return nil
}
