// Package rest layers typed JSON helpers over an httpclient.Client.
//
//	api := rest.New(client)
//	user, err := rest.Get[User](ctx, api, "/users/123")
//	created, err := rest.Post[User](ctx, api, "/users", CreateUser{Name: "Alice"})
//
// Responses are decoded from the parsed JSON value with mapstructure using
// the types' json tags.
package rest
