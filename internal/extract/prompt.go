package extract

// systemText keeps the model on the single-JSON-object contract.
const systemText = "You are a business card digitization assistant. Analyze the card image and return exactly one JSON object matching the requested schema. Use null for fields not present on the card. Do not include any text outside the JSON object."

// cardPrompt demands a single JSON object with the contact fields plus an
// optional research_insights block.
const cardPrompt = `Analyze this business card image and extract all contact information.

Return a single JSON object with this structure:
{
  "contact_data": {
    "name": "<full name>",
    "company": "<company name>",
    "industry": "<industry if identifiable>",
    "primary_email": "<main email>",
    "secondary_email": "<second email or null>",
    "primary_phone": "<main phone>",
    "secondary_phone": "<second phone or null>",
    "website": "<company website>",
    "address": "<postal address>",
    "linkedin": "<url or null>",
    "twitter": "<url or null>",
    "facebook": "<url or null>",
    "instagram": "<url or null>",
    "youtube": "<url or null>",
    "tiktok": "<url or null>",
    "github": "<url or null>"
  },
  "research_insights": {
    "about_person": "<what you can infer about this person and their role>",
    "opportunities": ["<potential business opportunities with them>"],
    "challenges": "<likely challenges their business faces>",
    "conversation_starters": ["<specific talking points for a follow-up>"]
  }
}

Omit research_insights entirely if the card gives you nothing to work with.`
