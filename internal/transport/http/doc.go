// Package http implements the HTTP handlers of the trade dashboard. Handlers
// stay thin: they read the session id and request parameters, call the
// dashboard service and write JSON, PNG or export bytes back.
//
// # Routes
//
//	GET  /api/state                          session view state and sidebar
//	POST /api/events                         navigate or toggle the trade type
//	GET  /api/pages/{page}                   rendered page content
//	GET  /api/pages/{page}/charts/{id}.png   one chart as PNG
//	GET  /api/data/info                      dataset summary
//	GET  /api/data/table                     sorted, filtered, paged records
//	GET  /api/data/export                    xlsx, csv or sqlite download
//	GET  /api/data/dictionary                column dictionary
//	POST /api/chat                           ask the assistant
//	GET  /ws/chat                            assistant over a websocket
//	POST /api/logs                           client-side error reports
//
// # Error Handling
//
// Every failure is passed to errors.ErrorHandler, which writes an RFC 7807
// problem document carrying the request's trace id.
//
// # Sessions
//
// SessionMiddleware issues an HttpOnly cookie on the first request. The
// view state is kept server-side, keyed by that cookie, and is only stored
// once the visitor sends an event.
package http
