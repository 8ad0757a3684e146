// Package kidtube keeps a child's video watching inside a parent-approved
// whitelist of channels, playlists and videos.
//
// Overview
//
// A parent pastes a link. kidtube recognizes it, resolves it to canonical
// metadata and stores it against a child profile:
//
//   - youtube.ParseURL: recognize watch, shorts, embed, live, channel, /c/,
//     @handle, playlist and youtu.be links
//   - youtube.Resolver: ask the Data API, then oEmbed, then a pool of mirror
//     instances, stopping at the first answer
//   - whitelist.Service: parse, resolve and persist in one call
//   - screentime.Evaluator: live daily time-limit status per profile
//   - screentime.SleepTimer: a one-second countdown to "stop watching"
//
// Quick Start
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//	app, err := kidtube.NewApp(ctx, cfg, zerolog.Nop())
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer app.Close()
//
//	item, err := app.Whitelist.AddFromURL(ctx, profileID, "https://youtu.be/abc123")
//	if err != nil {
//		fmt.Println(kidtube.UserMessage(err))
//	}
//
// Configuration
//
// Settings are read from several sources:
//
//  1. Environment variables (highest priority)
//  2. A .env file in the working directory
//  3. Config file (kidtube.yml or ~/.config/kidtube/kidtube.yml)
//  4. Default values (lowest priority)
//
// Environment variables use the KIDTUBE_ prefix with the upper-case YAML key,
// for example KIDTUBE_API_KEY, KIDTUBE_MIRROR_INSTANCES (comma separated) and
// KIDTUBE_CACHE_TTL.
//
// Mirror Health
//
// Mirror instances that fail twice in a row leave the rotation for five
// minutes; a single success restores them. health.Tracker.Stats reports the
// current state of the pool.
//
// Error Handling
//
// Resolution failures carry every provider's error:
//
//	var resErr *kidtube.ResolutionError
//	if errors.As(err, &resErr) {
//		fmt.Println(resErr.UserMessage())
//	}
//
// Duplicates are reported as ErrAlreadyExists; unrecognized links as
// ErrUnrecognizedURL.
package kidtube
