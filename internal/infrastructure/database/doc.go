// Package database opens the controller's SQLite record store and
// runs its embedded schema migrations.
//
// WAL mode keeps sensor-report writes from blocking API reads, and
// the pool is pinned to a single connection to match SQLite's
// single-writer model. Migrations are forward-only: each *.up.sql
// file under migrations/ runs once, in version order, in its own
// transaction.
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Security Considerations:
//   - All queries use parameterised statements
//   - The database file is chmodded to 0600
package database
