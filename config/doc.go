// Package config loads the YAML document that declares caches and
// invalidation policies, and wires them into a running interceptor.
//
// A document names its caches once and lets policies refer to them:
//
//	service: {name: orders}
//	caches:
//	  orders: {backend: redis, addr: "${REDIS_ADDR}", password: "secretref:env:REDIS_PASSWORD"}
//	policies:
//	  - {scope: OrderService, operation: UpdateOrder, cache: orders, key: {kind: args, prefix: order, args: [id]}}
//	  - {scope: OrderService, operation: ImportOrders, cache: orders, remove_all: true}
//
// Load reads the file (and a sibling .env when present), Build turns the
// result into a Runtime, and Watcher hot-swaps the policy table when the
// file changes. An optional admin section exposes authenticated flush
// endpoints through Runtime.Admin. Caches and telemetry are fixed for the life of a Runtime;
// only policies reload.
package config
