// Package launch issues and resolves play sessions.
//
// A launch validates a catalog entry, resolves its transport and play path,
// and stores the result under a random token. The browser is sent to
// /play/<token>/, which redirects to the stored path for as long as the
// token lives. Tokens are held in memory only; a restart forgets them.
package launch
