// Package transport provides terminal handlers for a reqkit stack.
//
// HTTP sends requests with net/http. By default the response body is
// buffered in memory so upper layers can read it more than once; the
// "stream" option hands the live body through instead, and "sink" copies it
// into a writer or file. Transfer failures reject the future with a
// *errors.Error classified as connect, timeout or canceled.
//
// Mock returns queued responses, errors or computed results and records
// the last request, which makes it the usual terminal in tests:
//
//	mock := transport.NewMock(transport.NewResponse(200, nil, "ok"))
//	s := stack.New(stack.WithHandler(mock.Handle))
package transport
