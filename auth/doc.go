/*
Package auth contains the user model of the moderation engine.

Three tiers of users matter here: superusers bypass every permission check,
staff users act within the subtree grants they hold (see core.GrantDB), and
users without any grant can not modify anything, not even nodes they created
themselves.

Authentication is out of scope. Callers name the acting user, the engine only
decides what that user may do.
*/
package auth
