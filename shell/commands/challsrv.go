package commands

// ChallengeServer is the subset of *challtestsrv.ChallengeTestSrv that
// acmeshell commands use to publish challenge responses during interactive
// `solve` sessions. Kept as its own interface (rather than depending on the
// concrete challtestsrv type directly) so command packages don't need to
// import challtestsrv just to call commands.GetChallSrv.
type ChallengeServer interface {
	Run()
	Shutdown()

	AddHTTPOneChallenge(token string, keyAuth string)
	DeleteHTTPOneChallenge(token string)

	AddDNSOneChallenge(host string, keyAuth string)
	DeleteDNSOneChallenge(host string)

	AddTLSALPNChallenge(host string, keyAuth string)
	DeleteTLSALPNChallenge(host string)
}
