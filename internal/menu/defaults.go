package menu

// DefaultItems seeds menu.json on first boot.
var DefaultItems = []Item{
	{ID: 1, Name: "Pizza Margherita", Price: 12.50, Category: CategoryPizzeria, Description: "Tomatensauce, Mozzarella, Basilikum", Available: true},
	{ID: 2, Name: "Pizza Salami", Price: 14.00, Category: CategoryPizzeria, Description: "Tomatensauce, Mozzarella, Salami", Available: true},
	{ID: 3, Name: "Bier 0.5L", Price: 4.50, Category: CategoryPub, Description: "Helles Bier vom Fass", Available: true},
	{ID: 4, Name: "Wein 0.2L", Price: 5.00, Category: CategoryPub, Description: "Rotwein oder Weißwein", Available: true},
	{ID: 5, Name: "Cola 0.3L", Price: 3.50, Category: CategoryPub, Description: "Eisgekühlte Cola", Available: true},
	{ID: 6, Name: "Pizza Quattro Stagioni", Price: 16.00, Category: CategoryPizzeria, Description: "Tomatensauce, Mozzarella, Schinken, Pilze, Artischocken, Oliven", Available: true},
	{ID: 7, Name: "Pizza Diavola", Price: 15.50, Category: CategoryPizzeria, Description: "Tomatensauce, Mozzarella, Salami, Peperoni", Available: true},
	{ID: 8, Name: "Weißbier 0.5L", Price: 5.00, Category: CategoryPub, Description: "Bayerisches Weißbier", Available: true},
	{ID: 9, Name: "Apfelsaft 0.3L", Price: 3.00, Category: CategoryPub, Description: "Frischer Apfelsaft", Available: true},
	{ID: 10, Name: "Pizza Vegetariana", Price: 13.50, Category: CategoryPizzeria, Description: "Tomatensauce, Mozzarella, Paprika, Zucchini, Aubergine", Available: true},
}
