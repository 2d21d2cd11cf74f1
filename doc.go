/*
Package replay intercepts outgoing HTTP requests at the transport layer and
answers them from in-process handlers or from fixtures recorded on disk.

It is primarily intended for deterministic tests of code that talks to
external HTTP services. A RoundTripper resolves each request in a fixed
order:

 1. handlers registered on its Bundle, in registration order;
 2. a fixture in the Bundle's LoadDir (a read-only "golden" set);
 3. a fixture in the Bundle's RecordDir;
 4. the network, if Fallback is set. The response is then recorded into
    RecordDir when one is configured.

On a miss without fallback the request fails with a *NotConnectedError,
which unwraps to syscall.ENETUNREACH so code that already copes with being
offline behaves as it would without a network.

Fixtures are named from a request identity: the first eight hex digits of the
MD5 digest of the normalized URL, with query items sorted by name, followed by
the request body. A Normalizer can strip volatile query parameters or the body
first, so requests that differ only in those details share a fixture. Each
fixture set consists of a primary JSON file and up to two sidecar files, all
relative to the fixture directory:

	{host}{path}-{hash}.json
	{host}{path}-{hash}-request.{ext}
	{host}{path}-{hash}-response.{ext}

Bodies whose content type maps to an extension (images, JSON, form posts and
text) are written to sidecars byte for byte. Other bodies are stored inside
the primary file: text as is, JSON indented and anything else as base64. The
JSON format is described on Recording and is meant to be edited by hand.

A simple example use case may look something like this:

	client := replay.NewPlaybackOnlyClient("testdata")
	// Fails with a *NotConnectedError unless testdata holds a fixture:
	res, err := client.Get("https://api.ipify.org?format=json")

Handlers answer requests without touching disk:

	rt := replay.NewRoundTripper(replay.NewBundle("", ""), false)
	rt.RegisterHandler(func(req *replay.Request) *replay.Response {
		return replay.StatusResponse(req, http.StatusCreated, nil)
	})
*/
package replay
