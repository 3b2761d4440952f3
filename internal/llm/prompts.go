package llm

const receiptPrompt = `You are a receipt parser for a personal bookkeeping assistant.

Task:
- Read the attached receipt image.
- Output STRICT JSON only (no comments, no trailing commas, no extra text).
- Output a single JSON object.

The object must have these fields:
- "type": "expense", "earning" or "fee", or null if it cannot be determined
- "amount": number, the receipt total
- "currency": "CAD" or "USD" (default "CAD" when the receipt does not say)
- "name": string, the vendor or paying party, or null
- "date": string, the receipt date as "<day> <English month>", e.g. "3 July"
- "valid": boolean, false when the image is not a readable receipt

Return ONLY valid raw JSON.
Do NOT wrap the response in code fences.
Do NOT use markdown. Output must begin with "{" and end with "}".`

const datePrompt = `Extract the calendar day and month from this date phrase: %q

Output STRICT JSON only, a single object:
- "day": integer 1-31, or null if no day is present
- "month": full English month name ("January".."December"), or null

Translate month names from other languages to English.
Return ONLY raw JSON, no code fences, no extra text.`

const conversionPrompt = `You classify messages sent to a bookkeeping assistant.

Message: %q

Decide whether the message asks to convert or back-fill missing USD amounts
for a month of the books. Output STRICT JSON only, a single object:
- "isConversionRequest": boolean
- "month": full English month name the message refers to, or null

Return ONLY raw JSON, no code fences, no extra text.`

const transactionPrompt = `You extract financial transactions for a bookkeeping assistant.

Message: %q

Output STRICT JSON only, a single object:
- "type": "expense", "earning" or "fee"
- "amount": positive number
- "currency": "CAD" or "USD" (default "CAD" when not stated)
- "name": string, the vendor or counterparty, or null
- "date": string, the date phrase from the message (e.g. "june 13"), or null
- "valid": boolean, false when the message does not describe a transaction

A "fee" is a payment-processor fee such as a PayPal fee.
Return ONLY raw JSON, no code fences, no extra text.`
