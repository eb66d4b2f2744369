package repository

import "github.com/sakif/memory-journal/internal/model"

// DefaultPrompts seeds an empty prompt table.
var DefaultPrompts = []model.MemoryPrompt{
	{Category: "childhood", Prompt: "What was your favorite toy as a child, and why was it special to you?"},
	{Category: "childhood", Prompt: "Describe a family tradition from your childhood that you still remember fondly."},
	{Category: "travel", Prompt: "What was the most unexpected thing you discovered during a trip?"},
	{Category: "travel", Prompt: "Describe a place that felt like home even though you were far from home."},
	{Category: "relationships", Prompt: "Tell me about a time when someone showed you unexpected kindness."},
	{Category: "relationships", Prompt: "What's a conversation that changed your perspective on something important?"},
	{Category: "achievements", Prompt: "What's something you accomplished that you're proud of, no matter how small?"},
	{Category: "achievements", Prompt: "Describe a moment when you surprised yourself with your own capability."},
	{Category: "challenges", Prompt: "What's a difficult situation that taught you something valuable about yourself?"},
	{Category: "challenges", Prompt: "Tell me about a time when you had to be brave."},
	{Category: "daily-life", Prompt: "What's a simple pleasure in your daily routine that brings you joy?"},
	{Category: "daily-life", Prompt: "Describe a moment from today that you want to remember."},
	{Category: "lessons", Prompt: "What's the best advice you've ever received, and who gave it to you?"},
	{Category: "lessons", Prompt: "What's something you wish you could tell your younger self?"},
	{Category: "gratitude", Prompt: "What's something you're grateful for that you might take for granted?"},
	{Category: "gratitude", Prompt: "Tell me about someone who has made a positive impact on your life."},
	{Category: "dreams", Prompt: "What's a dream or aspiration you have for the future?"},
	{Category: "dreams", Prompt: "Describe a perfect day in your ideal life."},
	{Category: "food", Prompt: "What's a meal that brings back strong memories, and why?"},
	{Category: "food", Prompt: "Tell me about a time when sharing food created a special moment."},
	{Category: "nature", Prompt: "Describe a time when you felt most connected to nature."},
	{Category: "nature", Prompt: "What's your favorite season and what memories does it bring back?"},
	{Category: "creativity", Prompt: "Tell me about something you created that you're proud of."},
	{Category: "creativity", Prompt: "What's a creative activity that brings you joy?"},
	{Category: "work", Prompt: "What's the most meaningful work you've ever done?"},
	{Category: "work", Prompt: "Tell me about a colleague or mentor who influenced your career."},
	{Category: "home", Prompt: "What makes a place feel like home to you?"},
	{Category: "home", Prompt: "Describe your favorite room or space and why it's special."},
	{Category: "pets", Prompt: "Tell me about a pet that was special to you."},
	{Category: "pets", Prompt: "What's the funniest thing a pet has ever done?"},
	{Category: "celebrations", Prompt: "What's your most memorable birthday or holiday celebration?"},
	{Category: "celebrations", Prompt: "Tell me about a celebration where you felt truly happy."},
	{Category: "music", Prompt: "What's a song that instantly transports you to a specific memory?"},
	{Category: "music", Prompt: "Tell me about a musical experience that moved you deeply."},
	{Category: "firsts", Prompt: "What's a 'first time' experience that you'll never forget?"},
	{Category: "firsts", Prompt: "Tell me about your first day at a new job or school."},
}
