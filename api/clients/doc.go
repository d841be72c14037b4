/*
Package clients provides a Go client for the public verifier API.

	client := &clients.VerifierClient{ServerAddr: "http://verifier:8080"}
	verdict, err := client.VerifyDocument(ctx, "MIT", document)
	if err != nil {
		return err
	}
	if !verdict.Valid {
		fmt.Println("not valid:", verdict.Reason)
	}

Non-2xx answers are returned as *api.StatusError. MockVerifierProvider
implements api.VerifierProvider with testify/mock for consumers' tests.
*/
package clients
