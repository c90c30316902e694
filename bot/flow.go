package bot

import "sync"

// flowStage tags where a user stands in the support conversation.
type flowStage int

const (
	stageIdle flowStage = iota
	stageAwaitTopic
	stageAwaitDescription
)

type flowState struct {
	stage   flowStage
	topicID int
}

// SupportFlow is the per-user state machine behind /support: pick a
// topic, then describe the problem. Any other interaction resets it.
type SupportFlow struct {
	mu     sync.Mutex
	states map[int64]flowState
}

func NewSupportFlow() *SupportFlow {
	return &SupportFlow{states: make(map[int64]flowState)}
}

// Begin puts the user at the topic selection step, replacing any
// half-finished flow.
func (f *SupportFlow) Begin(userID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[userID] = flowState{stage: stageAwaitTopic}
}

// ChooseTopic advances to the description step. Choosing without an
// active flow (a stale keyboard) is ignored and reported false.
func (f *SupportFlow) ChooseTopic(userID int64, topicID int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.states[userID]
	if !ok || state.stage != stageAwaitTopic {
		return false
	}
	f.states[userID] = flowState{stage: stageAwaitDescription, topicID: topicID}
	return true
}

// Describe completes the flow and returns the chosen topic. The second
// return is false when the user is not at the description step.
func (f *SupportFlow) Describe(userID int64) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.states[userID]
	if !ok || state.stage != stageAwaitDescription {
		return 0, false
	}
	delete(f.states, userID)
	return state.topicID, true
}

// Active reports whether the user is anywhere inside the flow.
func (f *SupportFlow) Active(userID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.states[userID]
	return ok
}

// AwaitingTopic reports whether the user still has to pick a topic.
func (f *SupportFlow) AwaitingTopic(userID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.states[userID]
	return ok && state.stage == stageAwaitTopic
}

func (f *SupportFlow) Cancel(userID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.states, userID)
}
