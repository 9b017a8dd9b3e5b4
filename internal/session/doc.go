// Package session implements the agent chat session controller.
//
// # Overview
//
// A Controller owns one conversational session: the active conversation id
// (nil for a new, untitled session), the ordered messages, and a pending
// navigation. Front ends call into it and render Snapshot results; they never
// mutate session state directly.
//
// # Sending
//
// Send appends an optimistic user message, posts it to the agent, and then
// either appends the assistant reply or rolls the optimistic message back and
// emits a Notice describing the failure. Only one send may be outstanding
// per session; a second one fails with ErrSendInProgress without touching
// the network.
//
// # Deferred navigation
//
// When a send from a new session creates a conversation on the server, the
// controller does not switch to it right away. The reply is marked for an
// animated reveal and the new id is held as a pending navigation. The front
// end calls OnAnimationComplete once the reveal finishes; only then does the
// active conversation change and the conversation cache refresh. The pending
// navigation is consumed once, so repeated completion signals are harmless.
//
// States:
//
//	Empty ──Send──► Sending ──► AwaitingReply ──ok──► Revealing ──complete──► Idle
//	                   ▲              │                                        │
//	                   │              └──fail──► Empty | Idle (rolled back)    │
//	                   └───────────────────────Send────────────────────────────┘
//
// # Session switches
//
// LoadSession and deleting the active conversation start a new logical
// session. Pending navigation is discarded. An in-flight send is not
// aborted, but its reply is dropped when it arrives and Send returns
// ErrSessionChanged.
//
// Until a loaded conversation's history arrives, Send fails with
// ErrSessionLoading. A load that fails leaves a new, empty session.
package session
