package specialist

import (
	contractx "github.com/erabu-ai/agentcore/agent/contract"
)

// Canned replies cover every sub-task and emotion so a model outage
// still yields a conversational turn, never a raw error.

var cannedBySubTask = map[contractx.SubTask]string{
	contractx.SubTaskAskPostal:           "Could you tell me the postal code of your current address?",
	contractx.SubTaskAskCity:             "Which city or ward are you moving to?",
	contractx.SubTaskAskDistrictOptional: "If you know the district, please share it. You can also skip this.",
	contractx.SubTaskAskBuildingType:     "What kind of building do you live in, for example an apartment or a house?",
	contractx.SubTaskAskRoomType:         "What is the room layout, for example 1K or 2LDK?",
	contractx.SubTaskAskPeriod:           "Which part of the month works best for your move: early, mid, or late?",
	contractx.SubTaskAskTimeSlot:         "Do you prefer a morning, afternoon, or evening start?",
	contractx.SubTaskAskMoreItems:        "Is there anything else that needs moving?",
	contractx.SubTaskAskFloor:            "Which floor is your home on?",
	contractx.SubTaskAskElevator:         "Does the building have an elevator?",
	contractx.SubTaskAskSpecialRequests:  "Any special handling needs, like a piano or fragile items?",
	contractx.SubTaskConfirmAddress:      "I found a matching address. Is it the right one?",
	contractx.SubTaskConfirmSummary:      "I have everything I need. Shall I put the quote request together?",
	contractx.SubTaskAskValue:            "Could you tell me a bit more so I can note it down?",
}

const cannedCollectorDefault = "Thanks! Could you tell me the next detail for your move?"

var cannedByEmotion = map[contractx.Emotion]string{
	contractx.EmotionAnxious:    "Moving is a lot to take in, and it is completely fine to go one step at a time. I will keep track of everything for you.",
	contractx.EmotionConfused:   "No problem, let me make this easier. We can go through it together, one small question at a time.",
	contractx.EmotionFrustrated: "I hear you, and I am sorry this has been tiring. Take your time; there is no rush on my side.",
	contractx.EmotionUrgent:     "Understood, let us move quickly. I will only ask what is strictly needed for your quote.",
	contractx.EmotionNeutral:    "Happy to help with your move. Let me know what you would like to do next.",
	contractx.EmotionPositive:   "Great! Let us keep going with your moving plan.",
}

const cannedAdvisorReply = "That depends on the final details of your move, and the quote will spell it out exactly. Shall we finish the remaining questions so I can get you a precise answer?"

// cannedCollectorReply keys on the sub-task first and degrades to a
// generic nudge.
func cannedCollectorReply(sub contractx.SubTask) string {
	if reply, ok := cannedBySubTask[sub]; ok {
		return reply
	}
	return cannedCollectorDefault
}

func cannedCompanionReply(emotion contractx.Emotion) string {
	if reply, ok := cannedByEmotion[emotion]; ok {
		return reply
	}
	return cannedByEmotion[contractx.EmotionNeutral]
}
