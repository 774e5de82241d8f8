// Package api exposes school records over HTTP.
//
// Routes:
//
//	GET  /schools              200 {"schools": [...]}, newest first
//	POST /schools              201 {"id": n}, multipart form with optional image
//	*    /schools              405, Allow: GET, POST
//	GET  /schoolImages/<file>  stored images
//	GET  /healthz, /readyz     liveness and storage readiness
//	GET  /metrics              Prometheus metrics, when enabled
//
// Validation and upload problems are returned as 400 with the error text.
// Storage failures are logged and returned as 500 with a fixed message.
//
// SchoolService holds the create and list logic so it can be used without the
// router:
//
//	svc := api.NewSchoolService(store, upload.NewHandler(dir, "/schoolImages"), validation.NewValidator(), nil)
//	srv := api.NewServer(api.Options{Service: svc, ImageDir: dir})
package api
