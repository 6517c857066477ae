// Package database provides SQLite connectivity and schema migrations.
//
// The climate service stores only its audit trail here; discovery state is
// rebuilt from the live sensors on every start.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if _, err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migrations are additive: new columns are NULLable or carry a DEFAULT, and
// every .up.sql ships with a .down.sql.
package database
