package transcript

import (
	"encoding/json"
	"fmt"

	"github.com/credvoice/persona-service/internal/store"
)

// directivePrompt is the trailing message after the conversation.
const directivePrompt = "Based on this conversation, update the user persona."

// personaSchemaPrompt describes the persona JSON shape the model must
// return.
const personaSchemaPrompt = `{
  "firstName": string,  // User's first name
  "lastName": string,   // User's last name
  "risk_profile": string,  // Conservative, Moderate, Aggressive, etc.
  "investment_goals": [
    {
      "id": string,
      "name": string,
      "description": string,
      "targetAmount": number,
      "targetDate": string,
      "priority": string,
      "progress": number
    }
  ],
  "spending_pattern": {
    "monthly_avg_spend": number,
    "monthly_savings_rate": number,
    "monthly_avg_categories": { [category: string]: number },
    "monthly_avg_surplus": number,
    "monthly_avg_income": number
  },
  "financial_summary": {
    "monthly_historic": { [month: string]: { "income": number, "surplus": number, "spends": number } },
    "total_cumulative": {
      "income": number,
      "spends": number,
      "categories": { [category: string]: number },
      "surplus": number
    }
  },
  "personal_context": [string]  // Array of strings with personal financial context
}`

// buildSystemPrompt assembles the extraction instructions around the
// current persona. The persona is embedded as indented JSON; numeric values
// are already plain ints/floats because records round-trip encoding/json.
func buildSystemPrompt(current store.Record) (string, error) {
	personaJSON, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return "", fmt.Errorf("transcript: encode current persona: %w", err)
	}

	return "You are an AI financial advisor analyzing conversations to update a user's financial profile.\n\n" +
		"CONTEXT:\n" +
		"This is a financial advisory application that helps users manage their finances, set investment goals, and track spending patterns.\n\n" +
		"USER PERSONA SCHEMA:\n" +
		"```\n" + personaSchemaPrompt + "\n```\n\n" +
		"CURRENT USER PERSONA:\n" +
		"```\n" + string(personaJSON) + "\n```\n\n" +
		"TASK:\n" +
		"1. Analyze the conversation transcript.\n" +
		"2. Extract relevant financial information, goals, preferences, and behaviors.\n" +
		"3. Update the user persona fields based on the conversation.\n" +
		"4. IMPORTANT: If the user's name is mentioned in the conversation:\n" +
		"   - Extract the firstName and lastName if provided.\n" +
		"   - If only a full name is given, split it appropriately into firstName and lastName.\n" +
		"   - Only update these fields if they are not already populated in the current persona.\n" +
		"   - Store the name with proper capitalization.\n" +
		"5. IMPORTANT: For the \"risk_profile\" field:\n" +
		"   - If it's empty or null, assign the most appropriate value based on the conversation.\n" +
		"   - If it already has a value, evaluate if it should be changed based on the current conversation.\n" +
		"   - Valid values include: \"Conservative\", \"Moderate\", \"Balanced\", \"Growth\", \"Aggressive\".\n" +
		"   - Always ensure this field has a value, even if you need to make a best guess.\n" +
		"6. Pay special attention to capturing user preferences such as preferred languages, location,\n" +
		"   cultural background, communication style, financial literacy, risk tolerance details,\n" +
		"   investment time horizon, family situation, employment, and any special financial circumstances.\n" +
		"7. Store these preferences and contextual information in the \"personal_context\" array as individual items.\n" +
		"8. Perform sentiment analysis on the conversation: the user's emotional state, the overall tone,\n" +
		"   mood patterns, and any emotional triggers related to financial topics.\n" +
		"9. Add sentiment insights to the \"personal_context\" array with a \"SENTIMENT:\" prefix,\n" +
		"   for example: \"SENTIMENT: User exhibits anxiety when discussing long-term investments\".\n" +
		"10. Return the COMPLETE updated user persona in the same JSON format.\n" +
		"11. Only modify fields where you have new information from the conversation.\n" +
		"12. For personal_context, add new insights as new items in the array, don't remove existing items.\n\n" +
		"IMPORTANT: Return ONLY the updated JSON object with no additional text or explanation.\n", nil
}
