/*
Package tasksdk is a Go client for the taskboard API.

A Client talks to the public endpoints and opens a Session by registering
or logging in:

	client := tasksdk.NewClient("http://localhost:8080")

	session, err := client.Login(ctx, "alice@example.com", "correct horse")
	if err != nil {
		return err
	}

	task, err := session.CreateTask(ctx, tasksdk.CreateTaskRequest{Title: "Ship it"})

The refresh token arrives as an HttpOnly cookie scoped to /auth/refresh.
The Session keeps the cookie value and attaches it itself, so logout and
refresh work regardless of the cookie path. The access token is refreshed
shortly before it expires.

Failed calls return an *APIError carrying the status and the server's
error code, message and field details.
*/
package tasksdk
