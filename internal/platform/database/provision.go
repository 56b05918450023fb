package database

import "context"

// Provisioner adapts the pool to the tenant service's provisioning contract.
type Provisioner struct {
	pool *Pool
}

// NewProvisioner creates a schema provisioner over the given pool.
func NewProvisioner(pool *Pool) *Provisioner {
	return &Provisioner{pool: pool}
}

// Provision creates the schema and its tenant-scoped tables.
func (p *Provisioner) Provision(ctx context.Context, schema string) error {
	handle, err := p.pool.ForSchema(schema)
	if err != nil {
		return err
	}
	return handle.Provision(ctx)
}
