// Package admin serves authenticated endpoints for inspecting policies and
// flushing caches by hand, outside any intercepted operation.
//
//	GET    /caches                   list cache names        (read caches)
//	POST   /caches/{name}/clear      clear one cache         (clear cache:<name>)
//	DELETE /caches/{name}/keys/{key} remove one key          (remove cache:<name>)
//	GET    /policies                 list active policies    (read policies)
//
// Every flush is instrumented like an intercepted invalidation, with the
// scope "admin", and is tagged with a flush ID that appears in the response
// and the log line.
package admin
