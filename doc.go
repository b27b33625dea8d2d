/*
Package libcbm implements the pool-and-flux carbon dynamics kernel used to
simulate forest-carbon trajectories for large populations of independent
land units ("stands"). A stand advances through a spinup procedure that
conditions its dead-organic-matter pools to an approximate steady state
under a historical disturbance regime, and then through a sequence of
annual simulation steps, each of which applies disturbance, growth,
turnover and decay as a composition of sparse pool-to-pool transfer
matrices.

The package does not parse input tables, resolve classifiers, schedule
disturbance events, or produce output dataframes — those are the
responsibility of callers. It consumes parameter tables and per-stand
inventory, and exposes pools, fluxes and state vectors back to them.
*/
package libcbm
