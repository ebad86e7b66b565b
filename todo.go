/*
	Project: Little Dragons - a school app for teachers and parents
	Target: primary & secondary school classes
*/
package littledragons

/*
TODO: remotedb: replace polling with a server-sent change feed once the API exposes one
TODO: admin: import students from CSV (same fixtures format as `seed`)

Layout:
	- core/statesync: observable state, list/live/form holders
	- core/docstore: document collections, queries, typed repositories
	- core/<feature>: models, repositories and holders of one screen
	- storage: docstore.Database implementations (memory, sqlite, postgres, remote API)
	- apps/api: echo HTTP API
	- apps/admin: administration CLI
*/
