// Package pool provides a bounded pool of reusable handles.
//
// A pool creates handles lazily through its factory, up to a fixed
// maximum; once the maximum is reached, Acquire blocks until a handle is
// released. An optional health check runs on release: handles that fail
// it are destroyed instead of being returned to the pool, so a broken
// connection never circulates.
//
//	p, err := pool.New(pool.Config[*sql.Conn]{
//	    MaxSize: 5,
//	    Factory: dialConn,
//	    HealthCheck: func(ctx context.Context, c *sql.Conn) error {
//	        return c.PingContext(ctx)
//	    },
//	    Destroy: func(c *sql.Conn) error { return c.Close() },
//	})
//
//	res, err := p.Acquire(ctx)
//	if err != nil {
//	    return err
//	}
//	defer p.Release(ctx, res)
//	use(res.Value)
//
// At most MaxSize handles exist at any moment, idle and in-use combined,
// and the created count only decreases when a handle is destroyed.
package pool
