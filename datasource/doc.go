// Package datasource provisions several relational backends from configuration.
//
// In static mode every configured name gets its own Bundle: a pool plus a
// session factory, session template, transaction manager and transaction
// template built over that pool. Resources are exposed under identifiers such
// as "ordersPool" or "usersTransactionTemplate".
//
// In dynamic mode the pools are placed in a Table behind one RoutingDataSource,
// exposed as "dataSource", and one shared chain ("dataSourceSessionFactory", ...)
// is built over it. Each call resolves its pool from the routing key carried by
// the context, see package routekey.
//
// Pools are built eagerly during Registry.Register so a bad backend stops
// startup. The later stages are built on first lookup and cached.
package datasource
