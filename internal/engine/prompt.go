package engine

// Prompt templates for the LLM assist features. All ask for bare JSON.

const refineDialogueSystem = `You turn raw video captions into practice dialogue for English learners.`

// refineDialoguePrompt: %s title, %s numbered caption lines.
const refineDialoguePrompt = `Video title: %q

The captions below come from one video, in order. Re-split them into natural speaker turns.
Keep the original words; fix only casing and punctuation. Label speakers "Speaker A" and
"Speaker B" and switch label when the speaker or the addressee plausibly changes.

Captions:
%s

Return ONLY a JSON object:
{"segments": [{"speakerName": "Speaker A", "text": "..."}]}`

// splitSegmentPrompt: %s speaker, %s text, %.2f start, %.2f end, %.2f duration.
const splitSegmentPrompt = `You are an expert in breaking down long dialogue segments into natural sentences with accurate timestamps.

Original segment:
- Speaker: %s
- Text: %q
- Start time: %.2f seconds
- End time: %.2f seconds
- Duration: %.2f seconds

Break this segment into smaller, natural sentences. For each sentence, estimate a timestamp
from its position in the text and the total duration. Preserve the original meaning and
wording. Timestamps must stay within the original start and end time.

Return ONLY a JSON array:
[{"text": "First sentence", "startTime": 0.0, "endTime": 0.0}]`

const translateSystem = `You are a translator helping English learners. Answer with valid JSON only.`

// translateWordPrompt: %s target, %q word, %q context, %s target, %s target.
const translateWordPrompt = `Translate this English word to %s: %q
Context: %q

Identify whether the word is part of a phrasal verb or idiom in the context.
Give the general meaning and the meaning in this context.

Return ONLY a JSON object:
{
  "translation": "general %s translation",
  "contextual_translation": "translation of the phrase as used in the context",
  "meaning_comparison": "short explanation in %s of how the meaning changes across contexts"
}`

// translateSentencePrompt: %s target, %q sentence, %q context, %s target, %s target.
const translateSentencePrompt = `Translate this English sentence to %s: %q
Context: %q

Translate with the full context in mind. Preserve idioms, phrasal verbs and expressions
naturally; focus on meaning rather than word-by-word translation.

Return ONLY a JSON object:
{
  "translation": "%s translation of the full sentence",
  "elements": [{"original": "special phrase or idiom", "translation": "...", "explanation": "brief reason in %s"}]
}
Use an empty array for "elements" when there is nothing special.`

const gradeLenientSystem = `You are a language learning assistant that evaluates speech recognition results.
Be VERY LENIENT: speech recognition is imperfect and learners have accents. If the learner
captured the general meaning or most key words, it is a match. Only fail when the speech is
completely different or missing most key words.`

// gradeLenientPrompt: %q expected, %q said.
const gradeLenientPrompt = `Original sentence: %q
User speech: %q

Also rate, from 1 to 10, how the attempt reads for pronunciation accuracy, fluency and
pace, natural intonation, and overall. Judge from the transcribed words only.

Return ONLY a JSON object:
{
  "isMatch": true,
  "accuracy": 0.0,
  "missingWords": ["up to 3 important missing words"],
  "feedback": "Well done!",
  "pronunciationScore": 7,
  "fluencyScore": 7,
  "intonationScore": 7,
  "overallScore": 7
}
Use accuracy 0.7 or more for anything remotely close.`

const writingFeedbackSystem = `You are an English teacher giving feedback on a student's writing. Answer with valid JSON only.`

// writingFeedbackPrompt: %q text, %q reference answer.
const writingFeedbackPrompt = `Student's writing:
%q

Reference answer (for comparison, may be empty):
%q

Provide grammar corrections, vocabulary and structure suggestions, overall feedback, and a
short comparison with the reference answer when one is given.

Return ONLY a JSON object:
{
  "corrections": [{"original": "text", "corrected": "text", "explanation": "why"}],
  "suggestions": [{"type": "vocabulary", "suggestion": "text", "reason": "why"}],
  "overallFeedback": "text",
  "comparisonWithReference": "text"
}
Use empty arrays when there is nothing to correct or suggest.`
