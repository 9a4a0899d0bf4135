// Package cosmosclient provides the primary entry point for constructing a
// Cosmos DB client that implements the cosmos.Client interface.
//
// It layers configuration, HTTP transport with retries, and request signing
// on top of the resource interfaces and types defined in the cosmos package.
// Most applications should import cosmosclient to build a client, then use
// the returned cosmos.Client to reach the resource-specific clients:
// Databases(), Collections(db) and Documents(db, coll).
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/cosmos-client/pkg/cosmos"
//	  "github.com/fivetwenty-io/cosmos-client/pkg/cosmosclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  // Sign requests with the account key:
//	  cli, err := cosmosclient.New(ctx, &cosmos.Config{
//	    Endpoint:  "https://myaccount.documents.azure.com",
//	    MasterKey: "base64-key==",
//	  })
//	  if err != nil { log.Fatal(err) }
//
//	  // Or with a resource token issued for a single collection:
//	  cli, err = cosmosclient.NewWithResourceToken(ctx,
//	    "myaccount.documents.azure.com", "type=resource&ver=1.0&sig=...")
//	  if err != nil { log.Fatal(err) }
//
//	  dbs, err := cli.Databases().List(ctx, cosmos.MaxItemCount(10))
//	  if err != nil { log.Fatal(err) }
//	  _ = dbs
//	}
//
// Endpoints without a scheme get "https://" and a trailing slash is removed.
//
// # TLS and development mode
//
// The local emulator serves a self-signed certificate. Config.SkipTLSVerify
// disables verification, but only when the environment variable
// COSMOS_DEV_MODE is "true" or "1"; otherwise New fails with
// cosmos.ErrSkipTLSOnlyInDev.
package cosmosclient
