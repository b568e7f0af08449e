// Package invalidate removes stale cache entries before an operation runs.
//
// An Interceptor sits in front of an operation. For each call it looks up
// the operation's Identity in a Resolver. Without a policy the call simply
// proceeds. With a policy it either clears the target cache or removes the
// single key a KeyGenerator derives from the call's arguments, and then
// proceeds. The operation's result and error are returned unchanged.
//
// Policies are configured explicitly at startup:
//
//	reg, err := invalidate.NewRegistry(map[invalidate.Identity]invalidate.Policy{
//		{Scope: "OrderService", Operation: "UpdateOrder"}: invalidate.KeyedPolicy("orders", orders,
//			invalidate.ArgsKeyGenerator{Prefix: "order", Args: []string{"id"}}),
//		{Scope: "OrderService", Operation: "ImportOrders"}: invalidate.RemoveAllPolicy("orders", orders),
//	})
//
// Operations are decorated statically with Interceptor.Wrap or Chain.
//
// # Failures
//
// By default a key generation failure aborts the call with a
// *KeyGenerationError and the operation does not run, while a failed Delete
// or Clear is logged and the operation runs anyway. FailurePolicy makes
// either choice explicit.
package invalidate
