// Package pg wires PostgreSQL as an alternative backing store for the
// notification and delivery queue storages.
//
// Connect opens a pgx pool with retries, Migrate applies the embedded goose
// migrations under migrations/, and the Is*Error helpers classify driver
// errors for storages.
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	if err := pg.Migrate(ctx, pool, cfg, log); err != nil {
//		return err
//	}
package pg
